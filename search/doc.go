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


// Package search finds persisted entities by name and description.
//
// A query matches an entity when its text appears in the entity's name or
// description, ignoring case, or when every non-stop-word of the query
// appears among the words of the name and description. Matches can be
// narrowed by owner, category and semantic state, and are returned most
// recently updated first.
package search
