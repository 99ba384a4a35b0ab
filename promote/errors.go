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


package promote

import "errors"

var (
	// ErrPermissionDenied is returned when a non-admin actor targets CANONICAL.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition is returned for demotions, same-state promotions
	// and unknown target states.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrActorRequired is returned when a request carries no actor ID.
	ErrActorRequired = errors.New("actor required")

	// ErrRepositoryRequired is returned when a promoter is created without
	// its repositories.
	ErrRepositoryRequired = errors.New("repository required")
)
