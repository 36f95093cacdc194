// Package mocks provides mock implementations for testing the accounts system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository and adapter ports. The generated files are committed so tests
// build without a codegen step.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockUserRepository(ctrl)
//	mockRepo.EXPECT().GetByEmail(gomock.Any(), "a@b.c").Return(user, nil)
package mocks

// Generate mock for UserRepository interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/veduta/accounts-api/internal/ports UserRepository

// Generate mock for Mailer interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=mailer_mock.go github.com/veduta/accounts-api/internal/ports Mailer
