package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/cache"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/filestorage"
	"github.com/yigit/noteverse/internal/pkg/websocket"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type pair [2]int64

type tokenRow struct {
	userID  int64
	expiry  time.Time
	revoked bool
}

type resetRow struct {
	userID int64
	expiry time.Time
	used   bool
}

// memStore is a shared in-memory database behind the fake repositories, so
// cascades and derived lists behave like the relational schema.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	resources map[int64]*models.Resource
	votes     map[pair]models.Vote // resource, user
	comments  map[int64]*models.Comment
	reports   map[pair]models.Report // resource, user
	follows   map[pair]time.Time     // follower, followee
	downloads map[pair]bool          // user, resource
	tokens    map[string]*tokenRow
	resets    map[string]*resetRow
	courses   []models.Course
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*models.User{},
		resources: map[int64]*models.Resource{},
		votes:     map[pair]models.Vote{},
		comments:  map[int64]*models.Comment{},
		reports:   map[pair]models.Report{},
		follows:   map[pair]time.Time{},
		downloads: map[pair]bool{},
		tokens:    map[string]*tokenRow{},
		resets:    map[string]*resetRow{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(name, emailAddr string, role models.RoleType) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: m.id(), Name: name, Email: emailAddr, Role: role, Course: models.DefaultCourse, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addResource(uploader int64, name string) *models.Resource {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &models.Resource{
		ID: m.id(), FileName: name, StorageKey: "study-resources/" + name + ".pdf", URL: "/files/" + name,
		Branch: "CSE", Subject: "OS", ResourceType: models.ResourceTypeNotes, UploadedBy: uploader, UploadedAt: time.Now(),
	}
	m.resources[r.ID] = r
	return r
}

// decorate fills the derived counters of a copy of r.
func (m *memStore) decorate(r *models.Resource, viewerID int64) models.Resource {
	out := *r
	out.Upvotes, out.Downvotes, out.CommentCount, out.ReportCount, out.MyVote = 0, 0, 0, 0, models.VoteNone
	for k, v := range m.votes {
		if k[0] != r.ID {
			continue
		}
		if v == models.VoteUp {
			out.Upvotes++
		} else {
			out.Downvotes++
		}
		if k[1] == viewerID {
			out.MyVote = v
		}
	}
	for _, c := range m.comments {
		if c.ResourceID == r.ID {
			out.CommentCount++
		}
	}
	for k := range m.reports {
		if k[0] == r.ID {
			out.ReportCount++
		}
	}
	if u, ok := m.users[r.UploadedBy]; ok {
		out.UploaderName = u.Name
	}
	return out
}

func page[T any](items []T, offset uint64, limit int) []T {
	if offset >= uint64(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// users

type fakeUserRepo struct{ *memStore }

func (f fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f fakeUserRepo) GetByEmail(_ context.Context, emailAddr string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, emailAddr) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f fakeUserRepo) EmailExists(ctx context.Context, emailAddr string) (bool, error) {
	_, err := f.GetByEmail(ctx, emailAddr)
	return err == nil, nil
}

func (f fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f fakeUserRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = hash
	return nil
}

func (f fakeUserRepo) UpdateRole(_ context.Context, userID int64, role models.RoleType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f fakeUserRepo) Delete(_ context.Context, id int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	var keys []string
	for rid, r := range f.resources {
		if r.UploadedBy == id {
			keys = append(keys, r.StorageKey)
			f.deleteResourceLocked(rid)
		}
	}
	for k := range f.votes {
		if k[1] == id {
			delete(f.votes, k)
		}
	}
	for cid, c := range f.comments {
		if c.UserID == id {
			delete(f.comments, cid)
		}
	}
	for k := range f.follows {
		if k[0] == id || k[1] == id {
			delete(f.follows, k)
		}
	}
	delete(f.users, id)
	sort.Strings(keys)
	return keys, nil
}

func (f fakeUserRepo) GetStats(_ context.Context, userID int64) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.UserStats{}
	for _, r := range f.resources {
		if r.UploadedBy == userID {
			s.Uploads++
		}
	}
	for k := range f.downloads {
		if k[0] == userID {
			s.Downloads++
		}
	}
	for k, v := range f.votes {
		if k[1] == userID {
			if v == models.VoteUp {
				s.Upvotes++
			} else {
				s.Downvotes++
			}
		}
	}
	for _, c := range f.comments {
		if c.UserID == userID {
			s.Comments++
		}
	}
	for k := range f.follows {
		if k[1] == userID {
			s.Followers++
		}
		if k[0] == userID {
			s.Following++
		}
	}
	return s, nil
}

func (f fakeUserRepo) summaries(match func(*models.User) bool) []models.UserSummary {
	out := []models.UserSummary{}
	for _, u := range f.users {
		if match(u) {
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Course: u.Course,
				College: u.College, Role: u.Role, CreatedAt: u.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f fakeUserRepo) Search(_ context.Context, q string, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q = strings.ToLower(q)
	all := f.summaries(func(u *models.User) bool {
		return q == "" || strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q)
	})
	return page(all, offset, limit), int64(len(all)), nil
}

func (f fakeUserRepo) Contributors(_ context.Context, limit int) ([]models.Contributor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[int64]int64{}
	for _, r := range f.resources {
		counts[r.UploadedBy]++
	}
	out := []models.Contributor{}
	for id, n := range counts {
		u := f.users[id]
		out = append(out, models.Contributor{ID: id, Name: u.Name, Uploads: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uploads != out[j].Uploads {
			return out[i].Uploads > out[j].Uploads
		}
		return out[i].ID < out[j].ID
	})
	return page(out, 0, limit), nil
}

func (f fakeUserRepo) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

// resources

type fakeResourceRepo struct{ *memStore }

func (f fakeResourceRepo) Create(_ context.Context, res *models.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[res.UploadedBy]; !ok {
		return apperrors.ErrUserNotFound
	}
	res.ID = f.id()
	res.UploadedAt = time.Now()
	res.UploaderName = f.users[res.UploadedBy].Name
	cp := *res
	f.resources[res.ID] = &cp
	return nil
}

func (f fakeResourceRepo) GetByID(_ context.Context, id, viewerID int64) (*models.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[id]
	if !ok {
		return nil, apperrors.ErrStudyResourceNotFound
	}
	out := f.decorate(r, viewerID)
	return &out, nil
}

func (f fakeResourceRepo) List(_ context.Context, filter repositories.ResourceFilter) ([]models.Resource, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []models.Resource{}
	for _, r := range f.resources {
		if filter.UploadedBy != nil && r.UploadedBy != *filter.UploadedBy {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" &&
			!strings.Contains(strings.ToLower(r.FileName), q) && !strings.Contains(strings.ToLower(r.Subject), q) {
			continue
		}
		all = append(all, f.decorate(r, filter.ViewerID))
	}
	sort.Slice(all, func(i, j int) bool {
		if filter.SortBy == repositories.SortUpvotes && all[i].Upvotes != all[j].Upvotes {
			return all[i].Upvotes > all[j].Upvotes
		}
		return all[i].ID > all[j].ID
	})
	return page(all, filter.Offset, filter.Limit), int64(len(all)), nil
}

func (f fakeResourceRepo) Facets(context.Context) (*models.ResourceFacets, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	facets := &models.ResourceFacets{}
	seen := map[string]bool{}
	for _, r := range f.resources {
		if !seen[r.Branch] {
			seen[r.Branch] = true
			facets.Branches = append(facets.Branches, r.Branch)
		}
	}
	return facets, nil
}

func (m *memStore) deleteResourceLocked(id int64) {
	delete(m.resources, id)
	for k := range m.votes {
		if k[0] == id {
			delete(m.votes, k)
		}
	}
	for cid, c := range m.comments {
		if c.ResourceID == id {
			delete(m.comments, cid)
		}
	}
	for k := range m.reports {
		if k[0] == id {
			delete(m.reports, k)
		}
	}
	for k := range m.downloads {
		if k[1] == id {
			delete(m.downloads, k)
		}
	}
}

func (f fakeResourceRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[id]; !ok {
		return apperrors.ErrStudyResourceNotFound
	}
	f.deleteResourceLocked(id)
	return nil
}

func (f fakeResourceRepo) RecordDownload(_ context.Context, resourceID, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[resourceID]
	if !ok {
		return 0, apperrors.ErrStudyResourceNotFound
	}
	r.Downloads++
	f.downloads[pair{userID, resourceID}] = true
	return r.Downloads, nil
}

func (f fakeResourceRepo) ListDownloadedBy(_ context.Context, userID int64, offset uint64, limit int) ([]models.Resource, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []models.Resource{}
	for k := range f.downloads {
		if k[0] == userID {
			all = append(all, f.decorate(f.resources[k[1]], userID))
		}
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (f fakeResourceRepo) Totals(context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var downloads int64
	for _, r := range f.resources {
		downloads += r.Downloads
	}
	return int64(len(f.resources)), downloads, nil
}

// engagement

type fakeEngagementRepo struct{ *memStore }

func (f fakeEngagementRepo) ToggleVote(_ context.Context, resourceID, userID int64, requested models.Vote) (*models.VoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[resourceID]; !ok {
		return nil, apperrors.ErrStudyResourceNotFound
	}
	key := pair{resourceID, userID}
	next := models.NextVote(f.votes[key], requested)
	if next == models.VoteNone {
		delete(f.votes, key)
	} else {
		f.votes[key] = next
	}
	d := f.decorate(f.resources[resourceID], userID)
	return &models.VoteState{ResourceID: resourceID, Upvotes: d.Upvotes, Downvotes: d.Downvotes, MyVote: next}, nil
}

func (f fakeEngagementRepo) ListVotedBy(_ context.Context, userID int64, vote models.Vote, offset uint64, limit int) ([]models.Resource, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []models.Resource{}
	for k, v := range f.votes {
		if k[1] == userID && v == vote {
			all = append(all, f.decorate(f.resources[k[0]], userID))
		}
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (f fakeEngagementRepo) AddComment(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[c.ResourceID]; !ok {
		return apperrors.ErrStudyResourceNotFound
	}
	c.ID = f.id()
	c.CreatedAt = time.Now()
	c.UserName = f.users[c.UserID].Name
	cp := *c
	f.comments[c.ID] = &cp
	return nil
}

func (f fakeEngagementRepo) GetComment(_ context.Context, id int64) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperrors.ErrCommentNotFound
}

func (f fakeEngagementRepo) ListComments(_ context.Context, resourceID int64) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Comment{}
	for _, c := range f.comments {
		if c.ResourceID == resourceID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeEngagementRepo) ListCommentsByUser(_ context.Context, userID int64, offset uint64, limit int) ([]models.Comment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Comment{}
	for _, c := range f.comments {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, offset, limit), int64(len(out)), nil
}

func (f fakeEngagementRepo) DeleteComment(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return apperrors.ErrCommentNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f fakeEngagementRepo) AddReport(_ context.Context, r *models.Report) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.resources[r.ResourceID]; !ok {
		return false, apperrors.ErrStudyResourceNotFound
	}
	key := pair{r.ResourceID, r.UserID}
	if _, ok := f.reports[key]; ok {
		return false, nil
	}
	r.CreatedAt = time.Now()
	f.reports[key] = *r
	return true, nil
}

func (f fakeEngagementRepo) ListReported(_ context.Context, offset uint64, limit int) ([]models.ReportedResource, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grouped := map[int64]*models.ReportedResource{}
	for k, rep := range f.reports {
		g, ok := grouped[k[0]]
		if !ok {
			g = &models.ReportedResource{Resource: f.decorate(f.resources[k[0]], 0)}
			grouped[k[0]] = g
		}
		g.Reports = append(g.Reports, rep)
	}
	out := []models.ReportedResource{}
	for _, g := range grouped {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Reports) != len(out[j].Reports) {
			return len(out[i].Reports) > len(out[j].Reports)
		}
		return out[i].Resource.ID > out[j].Resource.ID
	})
	return page(out, offset, limit), int64(len(out)), nil
}

func (f fakeEngagementRepo) CountComments(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.comments)), nil
}

// follows

type fakeFollowRepo struct{ *memStore }

func (f fakeFollowRepo) Follow(_ context.Context, follower, followee int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if follower == followee {
		return false, apperrors.ErrSelfFollow
	}
	if _, ok := f.users[followee]; !ok {
		return false, apperrors.ErrUserNotFound
	}
	key := pair{follower, followee}
	if _, ok := f.follows[key]; ok {
		return false, nil
	}
	f.follows[key] = time.Now()
	return true, nil
}

func (f fakeFollowRepo) Unfollow(_ context.Context, follower, followee int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pair{follower, followee}
	_, ok := f.follows[key]
	delete(f.follows, key)
	return ok, nil
}

func (f fakeFollowRepo) IsFollowing(_ context.Context, follower, followee int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.follows[pair{follower, followee}]
	return ok, nil
}

func (f fakeFollowRepo) list(userID int64, side int, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.UserSummary{}
	for k := range f.follows {
		if k[side] == userID {
			u := f.users[k[1-side]]
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, offset, limit), int64(len(out)), nil
}

func (f fakeFollowRepo) ListFollowers(_ context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	return f.list(userID, 1, offset, limit)
}

func (f fakeFollowRepo) ListFollowing(_ context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	return f.list(userID, 0, offset, limit)
}

func (f fakeFollowRepo) CountFollowers(_ context.Context, userID int64) (int64, error) {
	_, n, err := f.list(userID, 1, 0, 0)
	return n, err
}

// tokens

type fakeTokenRepo struct{ *memStore }

func (f fakeTokenRepo) Store(_ context.Context, userID int64, raw string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[raw] = &tokenRow{userID: userID, expiry: expiry}
	return nil
}

func (f fakeTokenRepo) Consume(_ context.Context, raw string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tokens[raw]
	switch {
	case !ok:
		return 0, apperrors.ErrTokenNotFound
	case row.revoked:
		return 0, apperrors.ErrTokenRevoked
	case row.expiry.Before(time.Now()):
		return 0, apperrors.ErrTokenExpired
	}
	row.revoked = true
	return row.userID, nil
}

func (f fakeTokenRepo) Revoke(_ context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tokens[raw]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	row.revoked = true
	return nil
}

func (f fakeTokenRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.tokens {
		if row.userID == userID {
			row.revoked = true
		}
	}
	return nil
}

func (f fakeTokenRepo) DeleteStale(context.Context) (int64, error) { return 0, nil }

type fakeResetRepo struct{ *memStore }

func (f fakeResetRepo) Issue(_ context.Context, userID int64, raw string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[raw] = &resetRow{userID: userID, expiry: expiry}
	return nil
}

func (f fakeResetRepo) Consume(_ context.Context, raw string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.resets[raw]
	switch {
	case ok && row.used:
		return 0, apperrors.ErrPasswordResetTokenUsed
	case !ok || row.expiry.Before(time.Now()):
		return 0, apperrors.ErrInvalidPasswordResetToken
	}
	row.used = true
	return row.userID, nil
}

// audit

type fakeAudit struct {
	mu       sync.Mutex
	uploads  []models.UploadRecord
	pictures map[int64]models.ProfilePicture
}

func newFakeAudit() *fakeAudit { return &fakeAudit{pictures: map[int64]models.ProfilePicture{}} }

func (a *fakeAudit) RecordUpload(_ context.Context, r *models.UploadRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploads = append(a.uploads, *r)
	return nil
}

func (a *fakeAudit) ListUploads(_ context.Context, userID int64, limit int) ([]models.UploadRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.UploadRecord{}
	for _, r := range a.uploads {
		if userID == 0 || r.UploadedByUser == userID {
			out = append(out, r)
		}
	}
	return page(out, 0, limit), nil
}

func (a *fakeAudit) ReplaceProfilePicture(_ context.Context, pic *models.ProfilePicture) (*models.ProfilePicture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.pictures[pic.UploadedByUser]
	a.pictures[pic.UploadedByUser] = *pic
	if !ok {
		return nil, nil
	}
	return &prev, nil
}

func (a *fakeAudit) picture(userID int64) (models.ProfilePicture, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pic, ok := a.pictures[userID]
	return pic, ok
}

func (a *fakeAudit) RemoveProfilePicture(_ context.Context, userID int64) (*models.ProfilePicture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev, ok := a.pictures[userID]
	delete(a.pictures, userID)
	if !ok {
		return nil, nil
	}
	return &prev, nil
}

func (a *fakeAudit) DeleteByUser(_ context.Context, userID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.uploads[:0]
	for _, r := range a.uploads {
		if r.UploadedByUser != userID {
			kept = append(kept, r)
		}
	}
	a.uploads = kept
	delete(a.pictures, userID)
	return nil
}

// storage

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failURL bool
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (s *fakeStorage) Save(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*filestorage.StoredObject, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return &filestorage.StoredObject{Key: key, URL: "/files/" + key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) URL(_ context.Context, key string) (string, error) {
	if s.failURL {
		return "", fmt.Errorf("presign failed")
	}
	return "/files/" + key + "?signed=1", nil
}

func (s *fakeStorage) countPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

func (s *fakeStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// email

type fakeMailer struct {
	mu       sync.Mutex
	sent     []string
	resetTok string
	fail     bool
}

func (m *fakeMailer) record(kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, kind)
	if m.fail {
		return fmt.Errorf("smtp down")
	}
	return nil
}

func (m *fakeMailer) SendUploadNotification(context.Context, email.UploadNotice) error {
	return m.record("upload")
}

func (m *fakeMailer) SendReportNotification(context.Context, email.ReportNotice) error {
	return m.record("report")
}

func (m *fakeMailer) SendAdminMessage(_ context.Context, to, _, subject, _ string) error {
	return m.record("admin:" + to + ":" + subject)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	m.resetTok = token
	m.mu.Unlock()
	return m.record("reset")
}

func (m *fakeMailer) SendWelcomeEmail(context.Context, string, string) error {
	return m.record("welcome")
}

func (m *fakeMailer) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// notifications

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]websocket.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: map[int64][]websocket.Notification{}}
}

func (n *fakeNotifier) Notify(userID int64, note websocket.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], note)
}

func (n *fakeNotifier) received(userID int64) []websocket.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[userID]
}

// env wires every service against one memStore.
type env struct {
	store      *memStore
	audit      *fakeAudit
	storage    *fakeStorage
	mailer     *fakeMailer
	notifier   *fakeNotifier
	cache      *cache.Memory
	auth       AuthService
	resources  ResourceService
	engagement EngagementService
	users      UserService
	admin      AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    newMemStore(),
		audit:    newFakeAudit(),
		storage:  newFakeStorage(),
		mailer:   &fakeMailer{},
		notifier: newFakeNotifier(),
		cache:    cache.NewMemory(),
	}
	log := zerolog.Nop()
	userRepo := fakeUserRepo{e.store}
	resourceRepo := fakeResourceRepo{e.store}
	engagementRepo := fakeEngagementRepo{e.store}
	followRepo := fakeFollowRepo{e.store}
	tokenRepo := fakeTokenRepo{e.store}
	authzService := authz.NewAuthorizationService(resourceRepo, engagementRepo)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "noteverse-test",
	})
	e.auth = NewAuthService(userRepo, tokenRepo, fakeResetRepo{e.store}, jwtService, e.mailer,
		AuthConfig{AdminEmail: "admin@noteverse.test"}, log)
	e.resources = NewResourceService(resourceRepo, userRepo, e.audit, e.storage, e.cache, e.mailer, authzService,
		ResourceConfig{MaxUploadBytes: 1024, ShareBaseURL: "https://notes.example.com/", FacetsTTL: time.Minute}, log)
	e.engagement = NewEngagementService(engagementRepo, resourceRepo, userRepo, e.notifier, e.mailer, e.cache, authzService, log)
	e.users = NewUserService(userRepo, followRepo, resourceRepo, tokenRepo, e.audit, e.storage, e.cache, e.notifier,
		UserConfig{AvatarMaxBytes: 1 << 20, ContributorsTTL: time.Minute}, log)
	e.admin = NewAdminService(userRepo, resourceRepo, engagementRepo, e.audit, e.users, e.resources, e.mailer, log)
	return e
}

// brokenUserRepo fails row writes on demand so partial-failure paths can be checked
type brokenUserRepo struct {
	fakeUserRepo
	updateErr error
	deleteErr error
}

func (r brokenUserRepo) Update(ctx context.Context, user *models.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.fakeUserRepo.Update(ctx, user)
}

func (r brokenUserRepo) Delete(ctx context.Context, id int64) ([]string, error) {
	if r.deleteErr != nil {
		return nil, r.deleteErr
	}
	return r.fakeUserRepo.Delete(ctx, id)
}

// usersWith builds a user service over e's fakes with a different user repository
func (e *env) usersWith(repo repositories.IUserRepository) UserService {
	return NewUserService(repo, fakeFollowRepo{e.store}, fakeResourceRepo{e.store}, fakeTokenRepo{e.store},
		e.audit, e.storage, e.cache, e.notifier,
		UserConfig{AvatarMaxBytes: 1 << 20, ContributorsTTL: time.Minute}, zerolog.Nop())
}

// fileHeader builds a multipart file part the way gin hands it to controllers.
func fileHeader(t *testing.T, field, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
