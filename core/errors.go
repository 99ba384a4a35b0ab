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

import "errors"

// Domain validation errors
var (
	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrInvalidHistoryEntry indicates a HistoryEntry failed validation.
	ErrInvalidHistoryEntry = errors.New("invalid history entry")

	// ErrInvalidCategory indicates a category outside the closed set.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidSemanticState indicates a semantic state outside the closed set.
	ErrInvalidSemanticState = errors.New("invalid semantic state")

	// ErrInvalidRole indicates an unknown actor role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNameTooLong indicates a name longer than MaxNameLength runes.
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidConfidence indicates a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidWeight indicates a relationship weight outside [1,10].
	ErrInvalidWeight = errors.New("weight must be between 1 and 10")

	// ErrEmptyRelationshipType indicates the relationship Type field is empty.
	ErrEmptyRelationshipType = errors.New("relationship type cannot be empty")

	// ErrInvalidEndpoint indicates a relationship endpoint ID of zero.
	ErrInvalidEndpoint = errors.New("relationship endpoint cannot be zero")
)
