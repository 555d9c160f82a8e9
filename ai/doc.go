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


// Package ai provides abstractions for the embedding services used by docindex.
//
// The core pipeline depends only on the Embedder interface, so embedding
// backends can be swapped without touching chunking or indexing logic.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI, OpenAI-compatible servers, and Azure OpenAI via langchaingo
//   - ai/gemini: Google Generative Language embeddings
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, gemini.NewProvider)
// return INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types to enable test assertions and
// behavior injection via the mock's public fields and methods.
//
//	provider, err := openai.NewProvider(config)  // returns ai.Provider
//	mockEmbed := mock.NewMockEmbedder()          // returns *mock.MockEmbedder
//	count := mockEmbed.CallCount()               // test assertion
//
// # Error Classification
//
// Implementations tag failures with core.Transient (rate limits, timeouts,
// unavailable backends) or core.Permanent (bad credentials, unknown model,
// rejected input). Untagged errors are retried by the embedding client.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderAzure),
//	    ai.WithEmbeddingHost("https://myresource.openai.azure.com"),
//	    ai.WithEmbeddingModel("text-embedding-ada-002"),
//	    ai.WithAPIKey(key),
//	    ai.WithAPIVersion("2023-05-15"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
