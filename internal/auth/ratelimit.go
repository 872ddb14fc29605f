package auth

import (
	"sync"
	"time"
)

// LoginRateLimiter limits login attempts per IP
type LoginRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*ipAttempts

	maxAttempts int           // Max attempts before blocking
	window      time.Duration // Time window for counting attempts
	blockTime   time.Duration // How long to block after max attempts
}

type ipAttempts struct {
	count     int
	firstTime time.Time
	blockEnd  time.Time
}

// NewLoginRateLimiter creates a rate limiter allowing 5 attempts per
// 2 minutes, blocking for 5 minutes after that.
func NewLoginRateLimiter() *LoginRateLimiter {
	rl := &LoginRateLimiter{
		attempts:    make(map[string]*ipAttempts),
		maxAttempts: 5,
		window:      2 * time.Minute,
		blockTime:   5 * time.Minute,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if the IP may attempt a login. When blocked, it also returns
// the remaining seconds until the block expires.
func (rl *LoginRateLimiter) Allow(ip string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	att, exists := rl.attempts[ip]

	if !exists || now.Sub(att.firstTime) > rl.window && now.After(att.blockEnd) {
		rl.attempts[ip] = &ipAttempts{count: 1, firstTime: now}
		return true, 0
	}

	if now.Before(att.blockEnd) {
		return false, int(att.blockEnd.Sub(now).Seconds())
	}

	att.count++
	if att.count > rl.maxAttempts {
		att.blockEnd = now.Add(rl.blockTime)
		return false, int(rl.blockTime.Seconds())
	}

	return true, 0
}

// Reset clears the rate limit for an IP after a successful login.
func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, ip)
}

// cleanup removes expired entries periodically.
func (rl *LoginRateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, att := range rl.attempts {
			if now.Sub(att.firstTime) > rl.window && now.After(att.blockEnd) {
				delete(rl.attempts, ip)
			}
		}
		rl.mu.Unlock()
	}
}
