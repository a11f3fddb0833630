package consumer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/whisperjob/errors"
	"github.com/kbukum/whisperjob/job"
	"github.com/kbukum/whisperjob/kafka"
	"github.com/kbukum/whisperjob/logger"
)

// Processor runs one job to completion.
type Processor interface {
	Process(ctx context.Context, j job.Job) job.Envelope
}

// ResultWriter publishes a JSON value.
type ResultWriter interface {
	SendJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// JobHandler decodes each message as a job, runs it and publishes the
// outcome to resultTopic keyed by job id. A message that is not a job still
// yields a FAILED outcome so the dispatcher hears about it.
func JobHandler(proc Processor, results ResultWriter, resultTopic string, log *logger.Logger) kafka.MessageHandler {
	log = log.WithComponent("kafka.jobs")
	return func(ctx context.Context, msg kafka.Message) error {
		j, err := job.Parse(msg.Value)
		id := jobID(j.ID, msg)
		ctx = logger.ContextWithJobID(ctx, id)

		var out job.Outcome
		if err != nil {
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				appErr = apperrors.InvalidInput(err.Error())
			}
			log.WithContext(ctx).Warn("Rejected job message", logger.Fields(
				"error", appErr.Message,
				"offset", msg.Offset,
			))
			out = job.NewOutcome(id, job.FailureEnvelope(appErr))
		} else {
			j.ID = id
			out = job.NewOutcome(id, proc.Process(ctx, j))
		}

		headers := map[string]string{
			kafka.HeaderJobID:     id,
			kafka.HeaderJobStatus: out.Status,
		}
		if err := results.SendJSON(ctx, resultTopic, id, out, headers); err != nil {
			return fmt.Errorf("publish result for job %s: %w", id, err)
		}
		return nil
	}
}

// jobID prefers the id in the body, then the message key, then the job-id
// header, and generates one as a last resort.
func jobID(bodyID string, msg kafka.Message) string {
	switch {
	case bodyID != "":
		return bodyID
	case msg.Key != "":
		return msg.Key
	case msg.Headers[kafka.HeaderJobID] != "":
		return msg.Headers[kafka.HeaderJobID]
	default:
		return uuid.New().String()
	}
}
