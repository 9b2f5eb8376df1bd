// Package mocks provides shared mock implementations for testing.
//
// This package contains mock implementations of external service clients
// that can be used by any package's tests.
//
// # Usage
//
//	import "agenticsearch/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    router := mocks.NewMockLLMClient()
//	    router.RespondWith(`{"agent":"General","reasoning":"static fact"}`)
//	    // Use router in test...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for pkg/agent/llm.LLMClient interface
package mocks
