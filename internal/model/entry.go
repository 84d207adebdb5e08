// Package model defines the core chat memory data types.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who produced a chat entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleKernel Role = "kernel"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleKernel
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q (valid: user, kernel)", s)
	}
	return r, nil
}

// ChatEntry is one message in the transcript. Entries are never mutated
// after they are appended.
type ChatEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// User returns a user entry with the given text.
func User(text string) ChatEntry {
	return ChatEntry{Role: RoleUser, Text: text}
}

// Kernel returns a kernel (assistant) entry with the given text.
func Kernel(text string) ChatEntry {
	return ChatEntry{Role: RoleKernel, Text: text}
}

// BlobVersion is written as "__v" on every persisted blob.
const BlobVersion = 1

// EntryLog is the persisted form of the transcript and the archive.
type EntryLog struct {
	Version int         `json:"__v"`
	Entries []ChatEntry `json:"entries"`
}

// legacyEntry covers the bare-array transcript shapes: plain entries and
// {user, kernel, t} exchange pairs with t in Unix milliseconds.
type legacyEntry struct {
	ChatEntry
	User   string `json:"user"`
	Kernel string `json:"kernel"`
	T      int64  `json:"t"`
}

// UnmarshalJSON accepts the versioned object form and a legacy bare array.
// Exchange pairs become a user entry followed by a kernel entry. Entries
// without a valid role are dropped. An object with a version other than
// BlobVersion is an error.
func (l *EntryLog) UnmarshalJSON(b []byte) error {
	var legacy []legacyEntry
	if err := json.Unmarshal(b, &legacy); err == nil {
		l.Version = 0
		l.Entries = fromLegacy(legacy)
		return nil
	}
	type plain EntryLog
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Version != BlobVersion {
		return fmt.Errorf("unsupported blob version %d", p.Version)
	}
	l.Version = p.Version
	l.Entries = validOnly(p.Entries)
	return nil
}

func fromLegacy(in []legacyEntry) []ChatEntry {
	out := make([]ChatEntry, 0, len(in))
	for _, le := range in {
		if le.Role.Valid() {
			out = append(out, le.ChatEntry)
			continue
		}
		var at time.Time
		if le.T > 0 {
			at = time.UnixMilli(le.T).UTC()
		}
		if le.User != "" {
			out = append(out, ChatEntry{Role: RoleUser, Text: le.User, CreatedAt: at})
		}
		if le.Kernel != "" {
			out = append(out, ChatEntry{Role: RoleKernel, Text: le.Kernel, CreatedAt: at})
		}
	}
	return out
}

func validOnly(in []ChatEntry) []ChatEntry {
	out := in[:0:0]
	for _, e := range in {
		if e.Role.Valid() {
			out = append(out, e)
		}
	}
	return out
}
