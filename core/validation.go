// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted entity name, in runes.
const MaxNameLength = 500

// NameKey returns the case-insensitive identity of a name: whitespace
// collapsed, trimmed and lowercased.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ParseCategory converts s to a Category, rejecting values outside the closed set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// ParseSemanticState converts s to a SemanticState. Matching is case-insensitive.
func ParseSemanticState(s string) (SemanticState, error) {
	upper := SemanticState(strings.ToUpper(strings.TrimSpace(s)))
	if upper.Rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSemanticState, s)
	}
	return upper, nil
}

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// ValidateCategory checks that c is part of the closed category set.
func ValidateCategory(c Category) error {
	_, err := ParseCategory(string(c))
	return err
}

// ValidateSemanticState checks that s is part of the closed state set.
func ValidateSemanticState(s SemanticState) error {
	if s.Rank() < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidSemanticState, s)
	}
	return nil
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be empty and at most MaxNameLength runes
//   - Category must be in the closed set
//   - State must be in the closed set
//   - Confidence must be in [0,1]
//
// NOT validated:
//   - ID (0 is valid, assigned from database sequences)
//   - Source fields (manual entities have none)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyName)
	}

	if utf8.RuneCountInString(entity.Name) > MaxNameLength {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrNameTooLong)
	}

	if err := ValidateCategory(entity.Category); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if err := ValidateSemanticState(entity.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if !IsValidConfidence(entity.Confidence) {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrInvalidConfidence)
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if rel.FromID == 0 || rel.ToID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrInvalidEndpoint)
	}

	if rel.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyRelationshipType)
	}

	if rel.Weight < 1 || rel.Weight > 10 {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrInvalidWeight)
	}

	if err := ValidateSemanticState(rel.State); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, err)
	}

	if !IsValidConfidence(rel.Confidence) {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrInvalidConfidence)
	}

	return nil
}

// ValidateHistoryEntry validates a HistoryEntry before it is appended.
func ValidateHistoryEntry(entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidHistoryEntry)
	}

	if entry.Target != TargetEntity && entry.Target != TargetRelationship {
		return fmt.Errorf("%w: unknown target kind %d", ErrInvalidHistoryEntry, entry.Target)
	}

	if entry.TargetID == 0 {
		return fmt.Errorf("%w: target id is zero", ErrInvalidHistoryEntry)
	}

	if err := ValidateSemanticState(entry.PreviousState); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHistoryEntry, err)
	}

	if err := ValidateSemanticState(entry.NewState); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHistoryEntry, err)
	}

	return nil
}

// IsValidConfidence checks if a confidence score lies in [0,1].
func IsValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}
