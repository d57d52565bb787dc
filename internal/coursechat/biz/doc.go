// Package biz provides the business logic of the course assistant.
//
// The package is split into the following components:
//   - Chunker: sentence-aware text chunking with overlap
//   - Parser: course document parsing (headers, lesson markers)
//   - Indexer: document ingestion (parse, chunk, embed, store)
//   - Watcher: docs folder watching with debounced re-ingestion
//   - Tools: retrieval tools the LLM can call during generation
//   - Generator: the tool-calling answer generation loop
//   - SessionManager: bounded in-memory conversation history
//   - QueryCache: Redis-backed answer cache
//   - Service: composes the above into the service interface
package biz
