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


// Package conversation validates, parses and chunks exported AI
// conversation files.
//
// A FileValidator rejects files that cannot be conversations before any
// parsing happens. A Parser detects the export format, the conversation
// date, participants and topic, and splits the text into chunks bounded
// by an estimated token count. Large files can be chunked lazily with
// Parser.Chunks, which reads the file in fixed windows.
package conversation
