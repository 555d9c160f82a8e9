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


// Package chunking implements the two-stage hierarchical splitter used before
// embedding.
//
// The first stage splits extracted markdown-like text into Sections at ATX
// headings of level 1 to 3. Headings are recognized with goldmark, so heading
// markers inside fenced code blocks, block quotes, and list items do not open a
// new section. Each Section carries the heading lineage active at that point.
//
// The second stage tokenizes a Section's content and emits fixed-size token
// windows with overlap. Window i starts at token i*(size-overlap) and ends at
// min(start+size, total); the sequence stops once a window reaches the end of
// the token stream, so a section of T tokens yields
// ceil(max(T-overlap, 0)/(size-overlap)) chunks, or exactly one when T <= size.
//
// Chunk sequences are exposed as iter.Seq values: lazy, finite, and
// restartable.
package chunking
