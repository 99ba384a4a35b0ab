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


// Package ingestion turns conversation files into knowledge-graph entities
// and relationships.
//
// A Pipeline runs one file through validation, parsing, extraction and
// relationship inference, then plans the writes against the current store:
// invalid names and near-duplicates of existing entities are skipped, and
// relationships are resolved to entity IDs by name. A dry run stops after
// planning and reports what would be written. A live run persists the plan,
// records the run in the source ledger and mirrors the result to any
// configured lake syncer.
//
// Preparation (everything up to planning) is independent per file and may
// run concurrently. The commit half is serialized by the Pipeline so that
// concurrent callers never create two entities for the same name. Batch
// drives many files this way using a worker pool.
package ingestion
