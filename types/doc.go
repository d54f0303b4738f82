// Package types provides core types shared across the council framework.
// This package has ZERO dependencies on other council packages to avoid
// circular imports. All other packages should import types from here.
//
// Core types:
//   - Message / Role: conversation messages exchanged with completion services
//   - OutputBudget: tagged advisory/enforced/unbounded output-length policy
//   - TokenUsage: token consumption statistics
//   - Error / ErrorCode: structured errors with retryability metadata
package types
