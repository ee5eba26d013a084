package lesson

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Watch subscribes to the learner's persisted state and folds every change
// into the service. The returned channel receives a value after each
// applied change; bursts are coalesced. It is closed when ctx ends or the
// store stops the subscription. Once Load has run, a change that completes
// the lesson writes the acknowledgment.
func (s *Service) Watch(ctx context.Context) (<-chan struct{}, error) {
	changes, cancel, err := s.kv.Subscribe(s.paths.LearnerRoot())
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", s.paths.LearnerRoot(), err)
	}
	updates := make(chan struct{}, 1)
	go func() {
		defer close(updates)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if !s.Apply(c) {
					continue
				}
				if s.loaded.Load() {
					if _, err := s.acknowledge(ctx, s.now()); err != nil {
						s.logger.Warn("acknowledge watched progress failed", zap.Error(err))
					}
				}
				select {
				case updates <- struct{}{}:
				default:
				}
			}
		}
	}()
	return updates, nil
}
