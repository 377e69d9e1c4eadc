package service

import (
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/pathrace/pathfind/search"
)

// runRace drives every stepper of r concurrently, each on its own grid, and
// records the combined result when all of them stop
func (v *visualizerImpl) runRace(sess *Session, r *race) {
	defer r.cancel()

	var group errgroup.Group
	results := make([]search.Result, len(r.steppers))
	pacer := r.speed.Pacer()

	for i, stepper := range r.steppers {
		i, stepper := i, stepper
		b := sess.boards[i]
		group.Go(func() error {
			results[i] = search.Drive(r.ctx, stepper, pacer, &b.mu)
			log.WithFields(log.Fields{
				"session":     sess.ID,
				"run":         r.id,
				"algorithm":   results[i].Algorithm,
				"status":      results[i].Status,
				"visited":     results[i].VisitedCount,
				"path_length": results[i].PathLength,
			}).Debug("search finished")
			return nil
		})
	}
	_ = group.Wait()

	finished := time.Now()
	status := RaceFinished
	for _, result := range results {
		if result.Status == search.StatusCancelled {
			status = RaceCancelled
		}
	}

	r.result = &RaceResult{
		RunID:      r.id,
		SessionID:  sess.ID,
		Status:     status,
		Speed:      r.speed.Name,
		StartedAt:  r.started,
		FinishedAt: &finished,
		Results:    results,
		Agree:      agree(results),
	}
	sess.endRace(r)

	log.WithFields(log.Fields{
		"session":  sess.ID,
		"run":      r.id,
		"status":   status,
		"agree":    r.result.Agree,
		"duration": finished.Sub(r.started).String(),
	}).Info("race finished")

	v.publisher.Publish(sess.ID, EventRaceFinished, r.result)
	close(r.done)
}
