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


// Package openai provides ai.Embedder implementations for OpenAI-compatible
// APIs and Azure OpenAI.
//
// This package uses the langchaingo library to communicate with OpenAI,
// Azure OpenAI, or OpenAI-compatible services (such as Ollama, LocalAI, or
// vLLM). Client errors are mapped through langchaingo's standardized error
// codes and tagged as transient or permanent.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderAzure),
//	    ai.WithEmbeddingHost("https://myresource.openai.azure.com"),
//	    ai.WithEmbeddingModel("text-embedding-ada-002"), // deployment name
//	    ai.WithAPIKey(key),
//	    ai.WithAPIVersion("2023-05-15"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
package openai
