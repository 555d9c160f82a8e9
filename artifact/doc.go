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


// Package artifact persists the local outputs of a file task: the extracted
// text and the JSON manifest of its ChunkRecords.
//
// Dir writes under an output directory. The s3 sub-package mirrors the same
// keys into a bucket, and Tee fans one write out to several stores.
package artifact
