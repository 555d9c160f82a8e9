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


// Package extract defines how document text is obtained from a source file.
//
// Two implementations are provided: docintel calls an Azure Document
// Intelligence endpoint chosen by the caller, and local parses common formats
// in-process. Both return markdown-flavoured text so headings survive into
// the chunking stage.
package extract
