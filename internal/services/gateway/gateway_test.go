package gateway

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meridianpress/meridian/internal/platform/i18n"
	adsapp "github.com/meridianpress/meridian/internal/services/ads/app"
	adsqlite "github.com/meridianpress/meridian/internal/services/ads/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/admin"
	commentsapp "github.com/meridianpress/meridian/internal/services/comments/app"
	commentsqlite "github.com/meridianpress/meridian/internal/services/comments/storage/sqlite"
	contentapp "github.com/meridianpress/meridian/internal/services/content/app"
	contentdomain "github.com/meridianpress/meridian/internal/services/content/domain"
	contentstorage "github.com/meridianpress/meridian/internal/services/content/storage"
	contentsqlite "github.com/meridianpress/meridian/internal/services/content/storage/sqlite"
	subsapp "github.com/meridianpress/meridian/internal/services/subscription/app"
	subsqlite "github.com/meridianpress/meridian/internal/services/subscription/storage/sqlite"
	taxonomyapp "github.com/meridianpress/meridian/internal/services/taxonomy/app"
	taxonomysqlite "github.com/meridianpress/meridian/internal/services/taxonomy/storage/sqlite"
	userapp "github.com/meridianpress/meridian/internal/services/userhub/app"
	usersqlite "github.com/meridianpress/meridian/internal/services/userhub/storage/sqlite"
	"github.com/meridianpress/meridian/internal/services/userhub/token"
	"github.com/meridianpress/meridian/internal/services/views"
	viewsqlite "github.com/meridianpress/meridian/internal/services/views/storage/sqlite"
)

// publishedChecker answers comment and taxonomy lookups from the
// content store, the same wiring the composition root uses.
type publishedChecker struct {
	store *contentsqlite.Store
}

func (c publishedChecker) ArticlePublished(ctx context.Context, articleID string) (bool, error) {
	article, err := c.store.GetArticle(ctx, articleID)
	if errors.Is(err, contentstorage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return article.Status == contentdomain.StatusPublished, nil
}

type articleUsage struct {
	store *contentsqlite.Store
}

func (u articleUsage) CategoryInUse(ctx context.Context, categoryID string) (bool, error) {
	articles, err := u.store.ListArticles(ctx, contentstorage.Filter{CategoryID: categoryID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(articles) > 0, nil
}

func (u articleUsage) TagInUse(ctx context.Context, tagID string) (bool, error) {
	articles, err := u.store.ListArticles(ctx, contentstorage.Filter{TagID: tagID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(articles) > 0, nil
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	userStore, err := usersqlite.Open(filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("open user store: %v", err)
	}
	t.Cleanup(func() { _ = userStore.Close() })
	contentStore, err := contentsqlite.Open(filepath.Join(dir, "content.db"))
	if err != nil {
		t.Fatalf("open content store: %v", err)
	}
	t.Cleanup(func() { _ = contentStore.Close() })
	taxonomyStore, err := taxonomysqlite.Open(filepath.Join(dir, "taxonomy.db"))
	if err != nil {
		t.Fatalf("open taxonomy store: %v", err)
	}
	t.Cleanup(func() { _ = taxonomyStore.Close() })
	commentStore, err := commentsqlite.Open(filepath.Join(dir, "comments.db"))
	if err != nil {
		t.Fatalf("open comment store: %v", err)
	}
	t.Cleanup(func() { _ = commentStore.Close() })
	subStore, err := subsqlite.Open(filepath.Join(dir, "subscriptions.db"))
	if err != nil {
		t.Fatalf("open subscription store: %v", err)
	}
	t.Cleanup(func() { _ = subStore.Close() })
	adStore, err := adsqlite.Open(filepath.Join(dir, "ads.db"))
	if err != nil {
		t.Fatalf("open ad store: %v", err)
	}
	t.Cleanup(func() { _ = adStore.Close() })
	viewStore, err := viewsqlite.Open(filepath.Join(dir, "views.db"))
	if err != nil {
		t.Fatalf("open view store: %v", err)
	}
	t.Cleanup(func() { _ = viewStore.Close() })

	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 3)
	}
	tokens, err := token.NewConfig("", "", base64.StdEncoding.EncodeToString(seed))
	if err != nil {
		t.Fatalf("token config: %v", err)
	}

	usersSvc := userapp.New(userStore, tokens)
	subsSvc := subsapp.New(subStore)
	counter := views.NewCounter(viewStore, logger)
	commentsSvc := commentsapp.New(commentStore, publishedChecker{store: contentStore})
	contentSvc := contentapp.New(contentStore, logger,
		contentapp.WithViews(counter),
		contentapp.WithAccessChecker(subsSvc),
		contentapp.WithCommentPurger(commentsSvc),
	)
	taxonomySvc := taxonomyapp.New(taxonomyStore, articleUsage{store: contentStore})
	adsSvc := adsapp.New(adStore)
	adminSvc := admin.New(contentSvc, commentsSvc, subsSvc, adsSvc, userStore, counter)

	return New("127.0.0.1:0", Services{
		Users:         usersSvc,
		Content:       contentSvc,
		Taxonomy:      taxonomySvc,
		Comments:      commentsSvc,
		Subscriptions: subsSvc,
		Ads:           adsSvc,
		Admin:         adminSvc,
	}, tokens, logger, opts...)
}

func doJSON(t *testing.T, srv *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

const testPassword = "long-enough-pass"

// login signs in and returns the session token pair.
func login(t *testing.T, srv *Server, email string) sessionJSON {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session sessionJSON
	decodeBody(t, rec, &session)
	return session
}

// register creates an account and returns its id and a session token.
func register(t *testing.T, srv *Server, email string) (string, string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":        email,
		"display_name": strings.SplitN(email, "@", 2)[0],
		"password":     testPassword,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var user userJSON
	decodeBody(t, rec, &user)
	return user.ID, login(t, srv, email).Token
}

// adminToken bootstraps the first admin account and signs in.
func adminToken(t *testing.T, srv *Server) string {
	t.Helper()
	if err := srv.services.Users.EnsureAdmin(context.Background(), "root@example.com", testPassword); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	return login(t, srv, "root@example.com").Token
}

// promote changes the user's role and signs the user in again: role
// claims are baked into the token at issue time, so the pre-promotion
// token still carries the old role.
func promote(t *testing.T, srv *Server, admin, userID, email, role string) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPut, "/v1/users/"+userID+"/role", admin, map[string]string{"role": role})
	if rec.Code != http.StatusOK {
		t.Fatalf("promote status = %d, body %s", rec.Code, rec.Body.String())
	}
	return login(t, srv, email).Token
}

func blocks(texts ...string) []map[string]any {
	payload := make([]map[string]any, 0, len(texts))
	for _, text := range texts {
		payload = append(payload, map[string]any{
			"type": "paragraph",
			"data": map[string]string{"text": text},
		})
	}
	return payload
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestRegisterLoginProfile(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, tok := register(t, srv, "ana@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/v1/me", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body.String())
	}
	var me userJSON
	decodeBody(t, rec, &me)
	if me.Email != "ana@example.com" || me.Role != "reader" {
		t.Fatalf("me = %+v", me)
	}

	rec = doJSON(t, srv, http.MethodPatch, "/v1/me", tok, map[string]string{
		"display_name": "Ana Braga",
		"locale":       "pt-BR",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &me)
	if me.DisplayName != "Ana Braga" {
		t.Fatalf("display name = %q", me.DisplayName)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"display_name": "no email",
		"password":     "long-enough-pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code = %q", resp.Error.Code)
	}
}

func TestInvalidBearerToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/me", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnonymousCannotAuthor(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/articles", "", map[string]any{
		"title":    "Draft",
		"language": "en-US",
		"blocks":   blocks("text"),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

// publishArticle walks one article through the whole editorial flow and
// returns its read payload fields.
func publishArticle(t *testing.T, srv *Server, adminTok, authorTok, title string) articleJSON {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/v1/categories", adminTok, map[string]string{"name": "World " + title})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d, body %s", rec.Code, rec.Body.String())
	}
	var category categoryJSON
	decodeBody(t, rec, &category)

	rec = doJSON(t, srv, http.MethodPost, "/v1/articles", authorTok, map[string]any{
		"title":       title,
		"summary":     "summary",
		"language":    "en-US",
		"blocks":      blocks("first", "second", "third"),
		"category_id": category.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create draft status = %d, body %s", rec.Code, rec.Body.String())
	}
	var article articleJSON
	decodeBody(t, rec, &article)

	rec = doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/submit", authorTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/publish", adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &article)
	if article.Status != "published" {
		t.Fatalf("status = %q", article.Status)
	}
	return article
}

func TestEditorialFlowAndPublicRead(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")

	article := publishArticle(t, srv, adminTok, authorTok, "City Elections")

	rec := doJSON(t, srv, http.MethodGet, "/v1/read/en-US/"+article.Slug, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view articleReadJSON
	decodeBody(t, rec, &view)
	if view.Article.Title != "City Elections" {
		t.Fatalf("title = %q", view.Article.Title)
	}
	if view.Views != 1 {
		t.Fatalf("views = %d, want 1", view.Views)
	}
	if view.Truncated {
		t.Fatal("free article should not be truncated")
	}
}

func TestRejectRequiresNote(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")

	rec := doJSON(t, srv, http.MethodPost, "/v1/articles", authorTok, map[string]any{
		"title":    "Pending Piece",
		"language": "en-US",
		"blocks":   blocks("body"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var article articleJSON
	decodeBody(t, rec, &article)
	if rec := doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/submit", authorTok, nil); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/reject", adminTok, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reject without note status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/reject", adminTok, map[string]string{"note": "needs sources"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &article)
	if article.Status != "rejected" || article.ReviewNote != "needs sources" {
		t.Fatalf("article = %+v", article)
	}
}

func TestPaywallOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")

	rec := doJSON(t, srv, http.MethodPost, "/v1/categories", adminTok, map[string]string{"name": "Business"})
	var category categoryJSON
	decodeBody(t, rec, &category)
	rec = doJSON(t, srv, http.MethodPost, "/v1/articles", authorTok, map[string]any{
		"title":       "Deep Dive",
		"language":    "en-US",
		"blocks":      blocks("one", "two", "three", "four"),
		"category_id": category.ID,
		"premium":     true,
	})
	var article articleJSON
	decodeBody(t, rec, &article)
	doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/submit", authorTok, nil)
	doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/publish", adminTok, nil)

	rec = doJSON(t, srv, http.MethodGet, "/v1/read/en-US/deep-dive", "", nil)
	var view articleReadJSON
	decodeBody(t, rec, &view)
	if !view.Truncated || len(view.Article.Blocks) != 2 {
		t.Fatalf("anonymous view truncated=%v blocks=%d", view.Truncated, len(view.Article.Blocks))
	}
	if view.PaywallNotice == "" {
		t.Fatal("expected a paywall notice")
	}

	_, readerTok := register(t, srv, "reader@example.com")
	rec = doJSON(t, srv, http.MethodPost, "/v1/subscription", readerTok, map[string]string{"plan": "monthly"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/read/en-US/deep-dive", readerTok, nil)
	decodeBody(t, rec, &view)
	if view.Truncated || len(view.Article.Blocks) != 4 {
		t.Fatalf("subscriber view truncated=%v blocks=%d", view.Truncated, len(view.Article.Blocks))
	}
}

func TestSubscriptionLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	_, readerTok := register(t, srv, "reader@example.com")

	rec := doJSON(t, srv, http.MethodGet, "/v1/plans", "", nil)
	var plans []planJSON
	decodeBody(t, rec, &plans)
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(plans))
	}

	rec = doJSON(t, srv, http.MethodPost, "/v1/subscription", readerTok, map[string]string{"plan": "annual"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/subscription/payments", readerTok, nil)
	var payments []paymentJSON
	decodeBody(t, rec, &payments)
	if len(payments) != 1 || payments[0].AmountCents != 9000 {
		t.Fatalf("payments = %+v", payments)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/v1/subscription", readerTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sub subscriptionJSON
	decodeBody(t, rec, &sub)
	if sub.AutoRenew {
		t.Fatal("auto renew should be off after cancel")
	}
	if sub.Status != "canceled" {
		t.Fatalf("status = %q, want canceled", sub.Status)
	}
}

func TestCommentFlowOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")
	article := publishArticle(t, srv, adminTok, authorTok, "Comment Target")

	_, readerTok := register(t, srv, "reader@example.com")
	rec := doJSON(t, srv, http.MethodPost, "/v1/articles/"+article.ID+"/comments", readerTok, map[string]string{"body": "Great reporting."})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post status = %d, body %s", rec.Code, rec.Body.String())
	}
	var comment commentJSON
	decodeBody(t, rec, &comment)
	if comment.Status != "pending" {
		t.Fatalf("status = %q", comment.Status)
	}

	// Anonymous readers do not see pending comments.
	rec = doJSON(t, srv, http.MethodGet, "/v1/articles/"+article.ID+"/comments", "", nil)
	var threads []threadJSON
	decodeBody(t, rec, &threads)
	if len(threads) != 0 {
		t.Fatalf("anonymous threads = %d, want 0", len(threads))
	}

	rec = doJSON(t, srv, http.MethodPut, "/v1/comments/"+comment.ID+"/status", adminTok, map[string]string{"status": "approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("moderate status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/articles/"+article.ID+"/comments", "", nil)
	decodeBody(t, rec, &threads)
	if len(threads) != 1 || threads[0].Comment.Body != "Great reporting." {
		t.Fatalf("threads = %+v", threads)
	}
}

func TestAdServeOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/ads", adminTok, map[string]any{
		"name":       "Fall Campaign",
		"placement":  "banner",
		"target_url": "https://ads.example.com/fall",
		"active":     true,
		"languages":  []string{"en-US"},
		"weight":     5,
		"start_at":   "2020-01-01T00:00:00Z",
		"end_at":     "2099-01-01T00:00:00Z",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ad status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/ads/serve?placement=banner&language=en-US", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("serve status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ad adJSON
	decodeBody(t, rec, &ad)
	if ad.Name != "Fall Campaign" || !ad.Active {
		t.Fatalf("ad = %+v", ad)
	}

	// The campaign is pinned to en-US readers.
	rec = doJSON(t, srv, http.MethodGet, "/v1/ads/serve?placement=banner&language=pt-BR", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mismatched language serve status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "" {
		t.Fatalf("mismatched language serve body = %q", body)
	}

	// No sidebar campaign exists.
	rec = doJSON(t, srv, http.MethodGet, "/v1/ads/serve?placement=sidebar", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty serve status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "" {
		t.Fatalf("empty serve body = %q", body)
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")
	publishArticle(t, srv, adminTok, authorTok, "Metrics Piece")

	_, readerTok := register(t, srv, "reader@example.com")
	rec := doJSON(t, srv, http.MethodPost, "/v1/subscription", readerTok, map[string]string{"plan": "monthly"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/admin/dashboard", adminTok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rec.Code, rec.Body.String())
	}
	var dashboard dashboardJSON
	decodeBody(t, rec, &dashboard)
	if dashboard.Articles["published"] != 1 {
		t.Fatalf("published count = %d", dashboard.Articles["published"])
	}
	if dashboard.UsersByRole["admin"] != 1 || dashboard.UsersByRole["author"] != 1 {
		t.Fatalf("users by role = %v", dashboard.UsersByRole)
	}
	if dashboard.Subscriptions["monthly"] != 1 {
		t.Fatalf("subscriptions = %v", dashboard.Subscriptions)
	}
	if dashboard.RevenueCents <= 0 {
		t.Fatalf("revenue = %d, want the monthly charge", dashboard.RevenueCents)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/admin/dashboard", authorTok, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("author dashboard status = %d", rec.Code)
	}
}

func TestErrorLocalization(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/read/en-US/missing?lang=pt-BR", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("code = %q", resp.Error.Code)
	}
	if resp.Error.Message != "O recurso solicitado não foi encontrado." {
		t.Fatalf("message = %q", resp.Error.Message)
	}

	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == i18n.LangCookieName && cookie.Value == "pt-BR" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the language cookie to be persisted")
	}
}

func TestRefreshOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	register(t, srv, "ana@example.com")
	session := login(t, srv, "ana@example.com")
	if session.RefreshToken == "" {
		t.Fatal("login returned no refresh token")
	}

	rec := doJSON(t, srv, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	var refreshed sessionJSON
	decodeBody(t, rec, &refreshed)
	if refreshed.Token == "" || refreshed.RefreshToken == "" {
		t.Fatalf("refreshed session = %+v, want a full token pair", refreshed)
	}

	// Access tokens cannot stand in for refresh tokens.
	rec = doJSON(t, srv, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": session.Token,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token status = %d, want 401", rec.Code)
	}
}

func TestCORSAllowedOrigins(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, WithCORSOrigins([]string{"https://meridian.example"}))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/v1/plans", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://meridian.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://meridian.example" {
		t.Fatalf("allow-origin = %q, want the configured origin", got)
	}

	rec = preflight("https://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin = %q, want empty for an unknown origin", got)
	}
}

func TestCategoryTreeOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/categories", adminTok, map[string]string{"name": "World"})
	var world categoryJSON
	decodeBody(t, rec, &world)
	rec = doJSON(t, srv, http.MethodPost, "/v1/categories", adminTok, map[string]string{"name": "Europe", "parent_id": world.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("child status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/categories", "", nil)
	var tree []categoryNodeJSON
	decodeBody(t, rec, &tree)
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("tree = %+v", tree)
	}
	if tree[0].Children[0].Category.Name != "Europe" {
		t.Fatalf("child = %+v", tree[0].Children[0].Category)
	}
}

func TestSearchFallbackOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	adminTok := adminToken(t, srv)
	authorID, _ := register(t, srv, "writer@example.com")
	authorTok := promote(t, srv, adminTok, authorID, "writer@example.com", "author")
	publishArticle(t, srv, adminTok, authorTok, "Harbor Expansion Plan")

	rec := doJSON(t, srv, http.MethodGet, "/v1/search?q=harbor", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body %s", rec.Code, rec.Body.String())
	}
	var hits []searchHitJSON
	decodeBody(t, rec, &hits)
	if len(hits) != 1 || hits[0].Title != "Harbor Expansion Plan" {
		t.Fatalf("hits = %+v", hits)
	}

	rec = doJSON(t, srv, http.MethodGet, "/v1/search?q=", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty query status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	doJSON(t, srv, http.MethodGet, "/healthz", "", nil)

	rec := doJSON(t, srv, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "meridian_http_requests_total") {
		t.Fatal("metrics body missing request counter")
	}
}
