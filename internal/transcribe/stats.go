package transcribe

import "sync"

// Stats holds process-lifetime transcription counters. Exactly one Record
// call happens per completed or failed transcription; derived values are
// computed on read. Lives for the process, reset only by restart.
//
// Safe for concurrent use; requests complete at overlapping times.
type Stats struct {
	mu                 sync.Mutex
	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	totalProcessing    float64 // seconds
	totalAudio         float64 // seconds
}

// StatsSnapshot is the read-side view of Stats, used by the status
// endpoint.
type StatsSnapshot struct {
	TotalRequests       int64   `json:"total_requests"`
	SuccessfulRequests  int64   `json:"successful_requests"`
	FailedRequests      int64   `json:"failed_requests"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	SuccessRate         float64 `json:"success_rate"`
	TotalAudioSeconds   float64 `json:"total_audio_processed_seconds"`
}

// Record registers one transcription attempt.
func (s *Stats) Record(processingSeconds float64, success bool, audioSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.totalProcessing += processingSeconds
	s.totalAudio += audioSeconds
	if success {
		s.successfulRequests++
	} else {
		s.failedRequests++
	}
}

// TotalRequests returns the number of recorded attempts.
func (s *Stats) TotalRequests() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRequests
}

// AvgProcessingTime returns the mean processing time in seconds, 0 with no
// requests.
func (s *Stats) AvgProcessingTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgProcessing()
}

// SuccessRate returns the success ratio in 0..1. With no requests it
// reports 1.0: nothing has failed yet.
func (s *Stats) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate()
}

// Snapshot returns a consistent view of all counters and derived values.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		TotalRequests:       s.totalRequests,
		SuccessfulRequests:  s.successfulRequests,
		FailedRequests:      s.failedRequests,
		AvgProcessingTimeMs: s.avgProcessing() * 1000,
		SuccessRate:         s.successRate(),
		TotalAudioSeconds:   s.totalAudio,
	}
}

// avgProcessing computes mean processing seconds. Caller holds s.mu.
func (s *Stats) avgProcessing() float64 {
	if s.totalRequests == 0 {
		return 0
	}
	return s.totalProcessing / float64(s.totalRequests)
}

// successRate computes the success ratio. Caller holds s.mu.
func (s *Stats) successRate() float64 {
	if s.totalRequests == 0 {
		return 1.0
	}
	return float64(s.successfulRequests) / float64(s.totalRequests)
}
