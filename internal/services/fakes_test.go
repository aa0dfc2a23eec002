package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

// memStore 是一个内存中的数据存储，供各个 fake repository 共享。
type memStore struct {
	users         map[uint]*models.User
	requests      map[uint]*models.FriendRequest
	friendships   map[[2]uint]*models.Friendship
	notifications []*models.Notification

	nextUserID         uint
	nextRequestID      uint
	nextNotificationID uint
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uint]*models.User),
		requests:    make(map[uint]*models.FriendRequest),
		friendships: make(map[[2]uint]*models.Friendship),
	}
}

func (s *memStore) addUser(username string) *models.User {
	s.nextUserID++
	u := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
		LastName:  "Test",
	}
	u.ID = s.nextUserID
	s.users[u.ID] = u
	return u
}

func canonicalKey(a, b uint) [2]uint {
	if a > b {
		a, b = b, a
	}
	return [2]uint{a, b}
}

// snapshot deep-copies the mutable state so a fake transaction can roll back.
func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.nextUserID = s.nextUserID
	cp.nextRequestID = s.nextRequestID
	cp.nextNotificationID = s.nextNotificationID
	for id, u := range s.users {
		uCopy := *u
		cp.users[id] = &uCopy
	}
	for id, r := range s.requests {
		rCopy := *r
		cp.requests[id] = &rCopy
	}
	for key, f := range s.friendships {
		fCopy := *f
		cp.friendships[key] = &fCopy
	}
	for _, n := range s.notifications {
		nCopy := *n
		cp.notifications = append(cp.notifications, &nCopy)
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.users = from.users
	s.requests = from.requests
	s.friendships = from.friendships
	s.notifications = from.notifications
	s.nextUserID = from.nextUserID
	s.nextRequestID = from.nextRequestID
	s.nextNotificationID = from.nextNotificationID
}

// ---- UserRepository fake ----

type fakeUserRepo struct {
	store *memStore

	// beforeCreate, when set, runs right before the uniqueness check in
	// Create. Lets a test interleave a rival insert the way a concurrent
	// registration would.
	beforeCreate func()
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	for _, u := range r.store.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.store.nextUserID++
	user.ID = r.store.nextUserID
	user.CreatedAt = time.Now()
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.store.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.store.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, query string, currentUserID uint, offset, limit int) ([]models.User, int64, error) {
	var matched []models.User
	q := strings.ToLower(query)
	for _, u := range r.store.users {
		if u.ID == currentUserID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Username), q) &&
			!strings.Contains(strings.ToLower(u.FirstName), q) &&
			!strings.Contains(strings.ToLower(u.LastName), q) {
			continue
		}
		matched = append(matched, *u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.User{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeUserRepo) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error) {
	users, _, err := r.List(ctx, query, currentUserID, 0, 10)
	return users, err
}

func (r *fakeUserRepo) GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u.BasicInfo(), nil
}

func (r *fakeUserRepo) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	var infos []*models.UserBasicInfo
	for _, id := range userIDs {
		if u, ok := r.store.users[id]; ok {
			infos = append(infos, u.BasicInfo())
		}
	}
	return infos, nil
}

func (r *fakeUserRepo) ListIDsExcluding(ctx context.Context, excluded []uint) ([]uint, error) {
	skip := make(map[uint]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}
	var ids []uint
	for id := range r.store.users {
		if !skip[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ---- FriendRequestRepository fake ----

type fakeFriendRequestRepo struct {
	store *memStore
}

func (r *fakeFriendRequestRepo) Create(ctx context.Context, request *models.FriendRequest) error {
	r.store.nextRequestID++
	request.ID = r.store.nextRequestID
	request.CreatedAt = time.Now()
	reqCopy := *request
	r.store.requests[request.ID] = &reqCopy
	return nil
}

func (r *fakeFriendRequestRepo) FindPendingRequest(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	for _, req := range r.store.requests {
		if req.Status != models.FriendRequestStatusPending {
			continue
		}
		if (req.RequesterUserID == userID1 && req.RecipientUserID == userID2) ||
			(req.RequesterUserID == userID2 && req.RecipientUserID == userID1) {
			reqCopy := *req
			return &reqCopy, nil
		}
	}
	return nil, nil
}

func (r *fakeFriendRequestRepo) GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	req, ok := r.store.requests[requestID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	reqCopy := *req
	return &reqCopy, nil
}

func (r *fakeFriendRequestRepo) UpdateRequestStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error {
	req, ok := r.store.requests[requestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	req.Status = status
	return nil
}

func (r *fakeFriendRequestRepo) GetPendingRequestsForUser(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error) {
	var result []models.FriendRequest
	for _, req := range r.store.requests {
		if req.RecipientUserID == recipientUserID && req.Status == models.FriendRequestStatusPending {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeFriendRequestRepo) GetPendingRequestsFromUser(ctx context.Context, requesterUserID uint) ([]models.FriendRequest, error) {
	var result []models.FriendRequest
	for _, req := range r.store.requests {
		if req.RequesterUserID == requesterUserID && req.Status == models.FriendRequestStatusPending {
			result = append(result, *req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeFriendRequestRepo) GetPendingCounterpartIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for _, req := range r.store.requests {
		if req.Status != models.FriendRequestStatusPending {
			continue
		}
		if req.RequesterUserID == userID {
			ids = append(ids, req.RecipientUserID)
		} else if req.RecipientUserID == userID {
			ids = append(ids, req.RequesterUserID)
		}
	}
	return ids, nil
}

func (r *fakeFriendRequestRepo) CloseAcceptedRequests(ctx context.Context, userID1, userID2 uint) error {
	for _, req := range r.store.requests {
		if req.Status != models.FriendRequestStatusAccepted {
			continue
		}
		if (req.RequesterUserID == userID1 && req.RecipientUserID == userID2) ||
			(req.RequesterUserID == userID2 && req.RecipientUserID == userID1) {
			req.Status = models.FriendRequestStatusCancelled
		}
	}
	return nil
}

// ---- FriendshipRepository fake ----

type fakeFriendshipRepo struct {
	store *memStore

	// createErr, when set, makes Create fail. Used to exercise the rollback
	// path of multi-record mutations.
	createErr error
}

func (r *fakeFriendshipRepo) Create(ctx context.Context, friendship *models.Friendship) error {
	if r.createErr != nil {
		return r.createErr
	}
	key := canonicalKey(friendship.UserID1, friendship.UserID2)
	if _, exists := r.store.friendships[key]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	fCopy := *friendship
	r.store.friendships[key] = &fCopy
	return nil
}

func (r *fakeFriendshipRepo) Delete(ctx context.Context, userID1, userID2 uint) error {
	key := canonicalKey(userID1, userID2)
	if _, exists := r.store.friendships[key]; !exists {
		return gorm.ErrRecordNotFound
	}
	delete(r.store.friendships, key)
	return nil
}

func (r *fakeFriendshipRepo) AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	_, exists := r.store.friendships[canonicalKey(userID1, userID2)]
	return exists, nil
}

func (r *fakeFriendshipRepo) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for key := range r.store.friendships {
		if key[0] == userID {
			ids = append(ids, key[1])
		} else if key[1] == userID {
			ids = append(ids, key[0])
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeFriendshipRepo) GetFriendIDsForUsers(ctx context.Context, userIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(userIDs))
	for _, id := range userIDs {
		ids, _ := r.GetFriendIDs(ctx, id)
		if len(ids) > 0 {
			result[id] = ids
		}
	}
	return result, nil
}

// ---- NotificationRepository fake ----

type fakeNotificationRepo struct {
	store *memStore
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.store.nextNotificationID++
	notification.ID = r.store.nextNotificationID
	notification.CreatedAt = time.Now()
	nCopy := *notification
	r.store.notifications = append(r.store.notifications, &nCopy)
	return nil
}

func (r *fakeNotificationRepo) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var result []models.Notification
	for i := len(r.store.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		if r.store.notifications[i].UserID == userID {
			result = append(result, *r.store.notifications[i])
		}
	}
	return result, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID, notificationID uint) error {
	for _, n := range r.store.notifications {
		if n.ID == notificationID && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ---- TxManager fake ----

// fakeTxManager snapshots the store before running fn and restores it when
// fn fails, mimicking a database transaction rollback.
type fakeTxManager struct {
	store          *memStore
	friendshipRepo *fakeFriendshipRepo
}

func (m *fakeTxManager) RunAtomic(ctx context.Context, fn func(repos storage.AtomicRepos) error) error {
	before := m.store.snapshot()
	repos := storage.AtomicRepos{
		Users:       &fakeUserRepo{store: m.store},
		Requests:    &fakeFriendRequestRepo{store: m.store},
		Friendships: m.friendshipRepo,
	}
	if err := fn(repos); err != nil {
		m.store.restore(before)
		return err
	}
	return nil
}

// ---- MessageProducer fake ----

type producedMessage struct {
	Topic   string
	Key     []byte
	Payload []byte
}

type fakeProducer struct {
	messages []producedMessage
	sendErr  error
}

func (p *fakeProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.messages = append(p.messages, producedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *fakeProducer) Close() {}

// ---- TokenBlacklist fake ----

type fakeBlacklist struct {
	revoked map[string]time.Time
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]time.Time)}
}

func (b *fakeBlacklist) Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error {
	b.revoked[jti] = originalTokenExpTime
	return nil
}

func (b *fakeBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, ok := b.revoked[jti]
	return ok, nil
}
