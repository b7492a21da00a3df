// Package stats derives per-speaker speaking-time analytics from a
// reconciled transcript history.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"transcript-sync-service/internal/models"
)

// Block is one raw transcript utterance fed to the estimator.
type Block struct {
	Speaker   string
	Text      string
	Timestamp time.Time
}

// SpeechSegment is a derived span of continuous speech by one speaker.
// Recomputed on every estimation, never persisted.
type SpeechSegment struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
}

// SpeakerStat aggregates one speaker's share of the meeting.
type SpeakerStat struct {
	Speaker      string  `json:"speaker"`
	TotalSeconds float64 `json:"total_seconds"`
	Percent      int     `json:"percent"`
}

// Result is the full estimator output.
type Result struct {
	Segments        []SpeechSegment `json:"segments"`
	SpeakerStats    []SpeakerStat   `json:"speaker_stats"`
	MeetingDuration float64         `json:"meeting_duration"`
}

// Config tunes the estimation heuristics.
type Config struct {
	// MinDuration is the floor for any utterance estimate, in seconds.
	MinDuration float64
	// BaseCost is the fixed per-utterance overhead, in seconds.
	BaseCost float64
	// CharsPerSecond converts text length to speech time. The default
	// derives from ~150 words/min at ~5 chars/word.
	CharsPerSecond float64
	// MaxSilenceFill caps how much of the gap to the next utterance is
	// credited beyond the text estimate, so long pauses are not billed
	// to the previous speaker.
	MaxSilenceFill float64
	// MergeGapThreshold joins consecutive same-speaker segments separated
	// by less than this many seconds.
	MergeGapThreshold float64
	// OverlapTolerance joins same-speaker segments that overlap by up to
	// this many seconds (expressed as a negative gap bound).
	OverlapTolerance float64
}

// DefaultConfig returns the canonical estimation constants.
func DefaultConfig() Config {
	return Config{
		MinDuration:       0.5,
		BaseCost:          0.5,
		CharsPerSecond:    12.5,
		MaxSilenceFill:    2.0,
		MergeGapThreshold: 1.0,
		OverlapTolerance:  -5.0,
	}
}

// Estimate runs the estimator with the default configuration.
func Estimate(blocks []Block) Result {
	return DefaultConfig().Estimate(blocks)
}

// Estimate builds per-speaker speaking-time analytics from raw utterance
// blocks. Zero blocks produce an empty result, never an error.
func (c Config) Estimate(blocks []Block) Result {
	blocks = dedupBlocks(blocks)
	if len(blocks) == 0 {
		return Result{}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Timestamp.Before(blocks[j].Timestamp)
	})
	start := blocks[0].Timestamp

	// Raw per-block durations: each utterance runs until the next block,
	// capped so silence before the next speaker is not credited here.
	// Non-positive gaps mean overlapping speech; fall back to the text
	// estimate so interrupted speakers are not penalized.
	raw := make([]SpeechSegment, 0, len(blocks))
	for i, b := range blocks {
		textEst := c.textEstimate(b.Text)
		duration := textEst
		if i < len(blocks)-1 {
			gap := blocks[i+1].Timestamp.Sub(b.Timestamp).Seconds()
			if gap > 0 {
				duration = math.Min(gap, textEst+c.MaxSilenceFill)
			}
		}
		raw = append(raw, SpeechSegment{
			Speaker:   b.Speaker,
			StartTime: b.Timestamp.Sub(start).Seconds(),
			Duration:  duration,
			Text:      b.Text,
		})
	}

	merged := c.mergeConsecutive(raw)

	totals := make(map[string]float64)
	order := make([]string, 0)
	var sum, end float64
	for _, seg := range merged {
		if _, ok := totals[seg.Speaker]; !ok {
			order = append(order, seg.Speaker)
		}
		totals[seg.Speaker] += seg.Duration
		sum += seg.Duration
		if segEnd := seg.StartTime + seg.Duration; segEnd > end {
			end = segEnd
		}
	}
	if sum <= 0 || end <= 0 {
		return Result{Segments: merged}
	}

	statsOut := make([]SpeakerStat, 0, len(order))
	for _, speaker := range order {
		statsOut = append(statsOut, SpeakerStat{
			Speaker:      speaker,
			TotalSeconds: totals[speaker],
			Percent:      int(math.Round(totals[speaker] / sum * 100)),
		})
	}
	sort.SliceStable(statsOut, func(i, j int) bool {
		return statsOut[i].TotalSeconds > statsOut[j].TotalSeconds
	})

	return Result{
		Segments:        merged,
		SpeakerStats:    statsOut,
		MeetingDuration: end,
	}
}

// textEstimate approximates speech time from text length.
func (c Config) textEstimate(text string) float64 {
	est := c.BaseCost + float64(len(text))/c.CharsPerSecond
	return math.Max(c.MinDuration, est)
}

// mergeConsecutive joins back-to-back segments from the same speaker when
// the gap between them is small or they slightly overlap. The merged span
// never double-counts a true overlap: it extends to the later of the two
// end points rather than summing durations.
func (c Config) mergeConsecutive(raw []SpeechSegment) []SpeechSegment {
	merged := make([]SpeechSegment, 0, len(raw))
	for _, seg := range raw {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			gap := seg.StartTime - (last.StartTime + last.Duration)
			if last.Speaker == seg.Speaker && gap < c.MergeGapThreshold && gap > c.OverlapTolerance {
				newEnd := math.Max(last.StartTime+last.Duration, seg.StartTime+seg.Duration)
				last.Duration = newEnd - last.StartTime
				if seg.Text != "" {
					if last.Text != "" {
						last.Text += " " + seg.Text
					} else {
						last.Text = seg.Text
					}
				}
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}

// dedupBlocks drops exact (timestamp, speaker, text) repeats, keeping the
// first occurrence.
func dedupBlocks(blocks []Block) []Block {
	seen := make(map[string]bool, len(blocks))
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		key := fmt.Sprintf("%d|%s|%s", b.Timestamp.UnixMilli(), b.Speaker, b.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// BlocksFromHistory converts finalized transcript segments into estimator
// blocks on the meeting-relative timeline. Segments without a speaker are
// skipped.
func BlocksFromHistory(history []models.TranscriptSegment) []Block {
	base := time.Unix(0, 0).UTC()
	out := make([]Block, 0, len(history))
	for _, seg := range history {
		if seg.Speaker == "" {
			continue
		}
		out = append(out, Block{
			Speaker:   seg.Speaker,
			Text:      seg.Text,
			Timestamp: base.Add(time.Duration(seg.CallTimeSeconds()) * time.Second),
		})
	}
	return out
}
