package collector

import (
	"context"

	"igfollow/pkg/instagram"
	"igfollow/pkg/snapshot"
)

// Resolver maps a username to its numeric account id
type Resolver interface {
	ResolveUserID(ctx context.Context, username string) (string, error)
}

// PageFetcher fetches one page of a follow list
type PageFetcher interface {
	FetchPage(ctx context.Context, kind instagram.EdgeKind, userID, cursor string) (*instagram.FollowingPage, error)
}

// InstagramClient is satisfied by *instagram.Client
type InstagramClient interface {
	Resolver
	PageFetcher
}

// SnapshotStore persists run snapshots. Load is only used when resuming.
type SnapshotStore interface {
	Write(s *snapshot.Snapshot) error
	Load() (*snapshot.Snapshot, error)
}

// ProgressReporter is told about every page appended to the accumulator
type ProgressReporter interface {
	PageFetched(page, pageItems, total int)
}
