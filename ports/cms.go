package ports

import (
	"context"

	"cmskit/domain/cms"
)

// CMSGateway performs calls against the content-management API
type CMSGateway interface {
	// Do sends req and returns the decoded reply. A reply that is not a
	// 200 JSON body with the success code is returned as an error.
	Do(ctx context.Context, req cms.Request) (*cms.Response, error)
}

// CredentialSource yields the session cookie sent with every CMS call
type CredentialSource interface {
	Load(ctx context.Context) (string, error)
}

// CredentialStore persists the session cookie
type CredentialStore interface {
	CredentialSource
	Save(ctx context.Context, cookie string) error
	Reset(ctx context.Context) error
}
