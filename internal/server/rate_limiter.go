package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window counter keyed by client address. The desk
// API serves a handful of operators, so a coarse in-process window is enough.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string]*rateWindow
}

type rateWindow struct {
	startedAt time.Time
	count     int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*rateWindow),
	}
}

// Allow reports whether the caller may proceed and counts the attempt.
func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()

	win := r.clients[key]
	if win == nil || now.Sub(win.startedAt) > r.window {
		if len(r.clients) >= maxTrackedClients {
			r.pruneLocked(now)
		}
		win = &rateWindow{startedAt: now}
		r.clients[key] = win
	}

	if win.count >= r.limit {
		return false
	}
	win.count++
	return true
}

const maxTrackedClients = 4096

// pruneLocked drops expired windows; called with r.mu held.
func (r *rateLimiter) pruneLocked(now time.Time) {
	for key, win := range r.clients {
		if now.Sub(win.startedAt) > r.window {
			delete(r.clients, key)
		}
	}
}
