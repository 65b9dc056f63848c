package registry

import (
	"github.com/sirupsen/logrus"
)

// Sweep performs a single liveness pass and returns the IDs of workers
// newly marked dead. Stale workers are marked dead and their ranks
// parked; dead records are dropped once their grace window passes. This
// is advisory liveness, not a membership protocol: a worker cut off by a
// transient partition may be falsely evicted and must re-register.
func (r *Registry) Sweep() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Clock.Now()
	var marked []string
	for id, rec := range r.workers {
		if rec.dead {
			// Drop the tombstone once its grace window has passed.
			if now.Sub(rec.LastSeen) > r.cfg.HeartbeatTimeout+r.cfg.DeregisterGrace {
				delete(r.workers, id)
			}
			continue
		}
		if now.Sub(rec.LastSeen) > r.cfg.HeartbeatTimeout {
			rec.dead = true
			r.releaseRankLocked(rec.Rank)
			marked = append(marked, id)
			r.cfg.Logger.WithFields(logrus.Fields{
				"worker_id": id,
				"rank":      rec.Rank,
				"last_seen": rec.LastSeen,
			}).Warn("worker marked dead; heartbeat deadline missed")
		}
	}
	return marked
}
