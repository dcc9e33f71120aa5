package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/services/comments/domain"
	"github.com/meridianpress/meridian/internal/services/comments/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
)

var (
	alice  = authctx.Identity{UserID: "user-alice", Role: userdomain.RoleReader}
	bob    = authctx.Identity{UserID: "user-bob", Role: userdomain.RoleReader}
	editor = authctx.Identity{UserID: "user-editor", Role: userdomain.RoleEditor}
)

type fakeArticles struct {
	published map[string]bool
}

func (f *fakeArticles) ArticlePublished(_ context.Context, articleID string) (bool, error) {
	return f.published[articleID], nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "comments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	articles := &fakeArticles{published: map[string]bool{"art-1": true, "art-2": true}}
	return New(store, articles)
}

func hasCode(err error, code apperrors.Code) bool {
	return errors.Is(err, apperrors.New(code, ""))
}

func TestPost(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	comment, err := svc.Post(ctx, alice, "art-1", "", "Great reporting.")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if comment.Status != domain.StatusPending {
		t.Fatalf("status = %q, want pending", comment.Status)
	}

	if _, err := svc.Post(ctx, authctx.Identity{}, "art-1", "", "anon"); !hasCode(err, apperrors.CodeAuthenticationMissing) {
		t.Fatalf("Post() anonymous error = %v, want authentication missing", err)
	}
	if _, err := svc.Post(ctx, alice, "art-unknown", "", "hi"); !hasCode(err, apperrors.CodeCommentArticleMissing) {
		t.Fatalf("Post() unknown article error = %v, want article missing", err)
	}
	if _, err := svc.Post(ctx, alice, "art-1", "", "   "); !hasCode(err, apperrors.CodeCommentBodyEmpty) {
		t.Fatalf("Post() empty body error = %v, want body empty", err)
	}
	if _, err := svc.Post(ctx, alice, "art-1", "", strings.Repeat("x", domain.MaxBodyLength+1)); !hasCode(err, apperrors.CodeCommentBodyEmpty) {
		t.Fatalf("Post() oversized body error = %v, want body empty", err)
	}
}

func TestPostReplyFlattening(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	top, err := svc.Post(ctx, alice, "art-1", "", "First!")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	reply, err := svc.Post(ctx, bob, "art-1", top.ID, "Replying to first")
	if err != nil {
		t.Fatalf("Post() reply error = %v", err)
	}
	if reply.ParentID != top.ID {
		t.Fatalf("reply parent = %q, want %q", reply.ParentID, top.ID)
	}

	// A reply to a reply attaches to the top-level comment instead.
	nested, err := svc.Post(ctx, alice, "art-1", reply.ID, "Replying to the reply")
	if err != nil {
		t.Fatalf("Post() nested error = %v", err)
	}
	if nested.ParentID != top.ID {
		t.Fatalf("nested parent = %q, want top-level %q", nested.ParentID, top.ID)
	}

	if _, err := svc.Post(ctx, bob, "art-2", top.ID, "Wrong thread"); !hasCode(err, apperrors.CodeCommentArticleMissing) {
		t.Fatalf("Post() cross-article reply error = %v, want article missing", err)
	}
}

func TestModerate(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	comment, err := svc.Post(ctx, alice, "art-1", "", "Pending remark")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}

	if _, err := svc.Moderate(ctx, alice, comment.ID, domain.StatusApproved); !hasCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("Moderate() as reader error = %v, want permission denied", err)
	}
	if _, err := svc.Moderate(ctx, editor, comment.ID, domain.StatusPending); !hasCode(err, apperrors.CodeCommentInvalidStatus) {
		t.Fatalf("Moderate() to pending error = %v, want invalid status", err)
	}

	approved, err := svc.Moderate(ctx, editor, comment.ID, domain.StatusApproved)
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Fatalf("status = %q, want approved", approved.Status)
	}
}

func TestListThreadsVisibility(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	top, err := svc.Post(ctx, alice, "art-1", "", "Top comment")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if _, err := svc.Moderate(ctx, editor, top.ID, domain.StatusApproved); err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	pendingReply, err := svc.Post(ctx, bob, "art-1", top.ID, "Pending reply")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	hidden, err := svc.Post(ctx, bob, "art-1", "", "Spam")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if _, err := svc.Moderate(ctx, editor, hidden.ID, domain.StatusHidden); err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}

	// Anonymous readers see only the approved thread.
	public, err := svc.ListThreads(ctx, authctx.Identity{}, "art-1")
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(public) != 1 || len(public[0].Replies) != 0 {
		t.Fatalf("public threads = %+v, want one bare thread", public)
	}

	// The reply author sees their own pending reply.
	own, err := svc.ListThreads(ctx, bob, "art-1")
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(own) != 1 || len(own[0].Replies) != 1 || own[0].Replies[0].ID != pendingReply.ID {
		t.Fatalf("own threads = %+v, want pending reply visible", own)
	}

	// Editors see everything.
	staff, err := svc.ListThreads(ctx, editor, "art-1")
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(staff) != 2 {
		t.Fatalf("staff threads = %d, want 2", len(staff))
	}
}

func TestPendingQueueAndStats(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Post(ctx, alice, "art-1", "", "One")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if _, err := svc.Post(ctx, bob, "art-1", "", "Two"); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if _, err := svc.Moderate(ctx, editor, first.ID, domain.StatusApproved); err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}

	queue, err := svc.PendingQueue(ctx, editor, 10)
	if err != nil {
		t.Fatalf("PendingQueue() error = %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	if _, err := svc.PendingQueue(ctx, alice, 10); !hasCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("PendingQueue() as reader error = %v, want permission denied", err)
	}

	stats, err := svc.Stats(ctx, editor)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats[domain.StatusApproved] != 1 || stats[domain.StatusPending] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}

func TestPurgeArticle(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Post(ctx, alice, "art-1", "", "Doomed"); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if err := svc.PurgeArticle(ctx, "art-1"); err != nil {
		t.Fatalf("PurgeArticle() error = %v", err)
	}
	threads, err := svc.ListThreads(ctx, editor, "art-1")
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("threads after purge = %+v, want empty", threads)
	}
}
