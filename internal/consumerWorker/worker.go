package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"regportal/internal/dto"
	"regportal/internal/exporter"
	"regportal/internal/repo"
)

var ErrBadJob = errors.New("malformed export job")

// Consumer feeds message bodies to a handler until ctx ends; *rabbit.Client
// satisfies it.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, []byte) error) error
}

// Reader turns queued export jobs into CSV files under dir.
type Reader struct {
	queue  Consumer
	repo   repo.Repository
	dir    string
	log    *zerolog.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(queue Consumer, repository repo.Repository, dir string, log *zerolog.Logger) *Reader {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Reader{
		queue: queue,
		repo:  repository,
		dir:   dir,
		log:   log,
		done:  make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Str("dir", r.dir).Msg("export worker started")

	go func() {
		defer close(r.done)
		if err := r.queue.Consume(cctx, r.Handle); err != nil {
			r.log.Error().Err(err).Msg("export worker stopped consuming")
			return
		}
		r.log.Info().Msg("export worker stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Handle runs one export job. Malformed jobs are reported with ErrBadJob.
func (r *Reader) Handle(ctx context.Context, body []byte) error {
	var msg dto.ExportJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal export job")
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}

	sectorID, ok := exporter.ParseFileName(msg.File)
	if !ok || sectorID != msg.SectorID {
		r.log.Error().Str("job_id", msg.JobID).Str("file", msg.File).Msg("export job names an invalid file")
		return fmt.Errorf("%w: file %q", ErrBadJob, msg.File)
	}

	start := time.Now()
	regs, err := r.repo.ListRegistrations(ctx, repo.RegistrationFilter{
		SectorID:    msg.SectorID,
		UnitID:      msg.UnitID,
		Designation: msg.Designation,
	})
	if err != nil {
		r.log.Error().Err(err).Str("job_id", msg.JobID).Msg("failed to load registrations for export")
		return err
	}

	path, err := exporter.WriteFile(r.dir, msg.File, regs)
	if err != nil {
		r.log.Error().Err(err).Str("job_id", msg.JobID).Msg("failed to write export")
		return err
	}

	r.log.Info().
		Str("job_id", msg.JobID).
		Str("path", path).
		Int("rows", len(regs)).
		Str("requested_by", msg.RequestedBy).
		Dur("took", time.Since(start)).
		Msg("export written")
	return nil
}
