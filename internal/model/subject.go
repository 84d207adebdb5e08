package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// LearnedSubject is a fact stored under a normalized subject key.
type LearnedSubject struct {
	Subject   string    `json:"subject" yaml:"subject"`
	Fact      string    `json:"fact" yaml:"fact"`
	Vector    []float32 `json:"vector,omitempty" yaml:"-"`
	LearnedAt time.Time `json:"learned_at" yaml:"learned_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// SubjectLog is the persisted form of the learned subjects. Order is
// first-insertion order.
type SubjectLog struct {
	Version  int              `json:"__v"`
	Subjects []LearnedSubject `json:"subjects"`
}

// UnmarshalJSON accepts the versioned object form and a legacy
// {subject: fact} map, which loads in subject order. A versioned object
// with a version other than BlobVersion is an error.
func (l *SubjectLog) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if _, ok := fields["__v"]; !ok {
		var legacy map[string]string
		if err := json.Unmarshal(b, &legacy); err != nil {
			return err
		}
		keys := make([]string, 0, len(legacy))
		for k := range legacy {
			if NormalizeSubject(k) != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		l.Version = 0
		l.Subjects = make([]LearnedSubject, 0, len(keys))
		seen := map[string]bool{}
		for _, k := range keys {
			key := NormalizeSubject(k)
			if seen[key] {
				continue
			}
			seen[key] = true
			l.Subjects = append(l.Subjects, LearnedSubject{Subject: key, Fact: legacy[k]})
		}
		return nil
	}
	type plain SubjectLog
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Version != BlobVersion {
		return fmt.Errorf("unsupported blob version %d", p.Version)
	}
	*l = SubjectLog(p)
	return nil
}

// NormalizeSubject lower-cases and trims a subject key.
func NormalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
