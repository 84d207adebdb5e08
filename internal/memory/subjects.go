package memory

import (
	"context"

	"github.com/rcliao/kernel-memory/internal/kv"
	"github.com/rcliao/kernel-memory/internal/model"
)

// LearnSubject stores fact under the normalized subject, replacing any
// previous fact. An overwritten subject keeps its original position. The
// whole subject list is persisted on every call.
//
// The only error returned is ErrEmptySubject.
func (e *Engine) LearnSubject(ctx context.Context, subject, fact string) error {
	key := model.NormalizeSubject(subject)
	if key == "" {
		return ErrEmptySubject
	}
	if err := e.learn(ctx, key, fact); err != nil {
		e.warn("learn subject", err)
	}
	return nil
}

func (e *Engine) learn(ctx context.Context, key, fact string) error {
	vec, err := e.embedder.Embed(ctx, fact)
	if err != nil {
		// Similarity search re-embeds subjects without a stored vector.
		e.log.Warn("embedding failed, storing fact without vector", "subject", key, "error", err)
		vec = nil
	}

	sKey := e.key(KeySubjects)
	unlock := e.locks.lock(sKey)
	defer unlock()

	subjects, err := e.loadSubjects(ctx)
	if kv.IsMalformed(err) {
		e.log.Warn("discarding corrupted blob", "key", sKey, "error", err)
		subjects, err = nil, nil
	}
	if err != nil {
		return err
	}

	now := e.now().UTC()
	for i := range subjects {
		if subjects[i].Subject == key {
			subjects[i].Fact = fact
			subjects[i].Vector = vec
			subjects[i].UpdatedAt = now
			return e.saveSubjects(ctx, subjects)
		}
	}
	subjects = append(subjects, model.LearnedSubject{
		Subject:   key,
		Fact:      fact,
		Vector:    vec,
		LearnedAt: now,
		UpdatedAt: now,
	})
	return e.saveSubjects(ctx, subjects)
}

// GetFacts returns the fact stored for subject, matched after normalization.
func (e *Engine) GetFacts(ctx context.Context, subject string) (string, bool) {
	key := model.NormalizeSubject(subject)
	if key == "" {
		return "", false
	}
	for _, s := range e.ListSubjects(ctx) {
		if s.Subject == key {
			return s.Fact, true
		}
	}
	return "", false
}

// ListSubjects returns every learned subject in insertion order.
func (e *Engine) ListSubjects(ctx context.Context) []model.LearnedSubject {
	subjects, err := e.loadSubjects(ctx)
	if err != nil {
		e.warn("load subjects", err)
		return []model.LearnedSubject{}
	}
	if subjects == nil {
		return []model.LearnedSubject{}
	}
	return subjects
}

// ForgetSubject removes one subject. It reports whether the subject existed.
func (e *Engine) ForgetSubject(ctx context.Context, subject string) bool {
	key := model.NormalizeSubject(subject)
	if key == "" {
		return false
	}

	sKey := e.key(KeySubjects)
	unlock := e.locks.lock(sKey)
	defer unlock()

	subjects, err := e.loadSubjects(ctx)
	if err != nil {
		e.warn("forget subject", err)
		return false
	}
	for i := range subjects {
		if subjects[i].Subject != key {
			continue
		}
		kept := append(subjects[:i:i], subjects[i+1:]...)
		if err := e.saveSubjects(ctx, kept); err != nil {
			e.warn("forget subject", err)
			return false
		}
		return true
	}
	return false
}

// ClearSubjects removes every learned subject.
func (e *Engine) ClearSubjects(ctx context.Context) {
	e.removeUnderLock(ctx, KeySubjects, "clear subjects")
}
