package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recommendationFixture struct {
	*friendServiceFixture
	recommendations RecommendationService
}

func newRecommendationFixture() *recommendationFixture {
	f := newFriendServiceFixture()
	return &recommendationFixture{
		friendServiceFixture: f,
		recommendations:      NewRecommendationService(f.userRepo, f.requestRepo, f.friendshipRepo),
	}
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("excludes self, friends and pending counterparts", func(t *testing.T) {
		f := newRecommendationFixture()
		alice := f.store.addUser("alice")
		bob := f.store.addUser("bob")     // will be a friend
		carol := f.store.addUser("carol") // outgoing pending
		dave := f.store.addUser("dave")   // incoming pending
		erin := f.store.addUser("erin")   // the only valid candidate

		mustBefriend(t, f.friendServiceFixture, alice.ID, bob.ID)
		_, err := f.service.SendRequest(ctx, alice.ID, carol.ID)
		require.NoError(t, err)
		_, err = f.service.SendRequest(ctx, dave.ID, alice.ID)
		require.NoError(t, err)

		recs, err := f.recommendations.GetRecommendations(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, erin.ID, recs[0].User.ID)
	})

	t.Run("ranks by mutual friends, ties by username", func(t *testing.T) {
		f := newRecommendationFixture()
		alice := f.store.addUser("alice")
		bob := f.store.addUser("bob")
		carol := f.store.addUser("carol")
		// zoe and adam share one friend with alice each; walt shares two.
		zoe := f.store.addUser("zoe")
		adam := f.store.addUser("adam")
		walt := f.store.addUser("walt")

		mustBefriend(t, f.friendServiceFixture, alice.ID, bob.ID)
		mustBefriend(t, f.friendServiceFixture, alice.ID, carol.ID)
		mustBefriend(t, f.friendServiceFixture, walt.ID, bob.ID)
		mustBefriend(t, f.friendServiceFixture, walt.ID, carol.ID)
		mustBefriend(t, f.friendServiceFixture, zoe.ID, bob.ID)
		mustBefriend(t, f.friendServiceFixture, adam.ID, carol.ID)

		recs, err := f.recommendations.GetRecommendations(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, recs, 3)

		assert.Equal(t, walt.ID, recs[0].User.ID)
		assert.Equal(t, 2, recs[0].MutualFriends)
		// adam and zoe both have one mutual friend; username order decides.
		assert.Equal(t, adam.ID, recs[1].User.ID)
		assert.Equal(t, 1, recs[1].MutualFriends)
		assert.Equal(t, zoe.ID, recs[2].User.ID)
		assert.Equal(t, 1, recs[2].MutualFriends)
	})

	t.Run("honors the limit", func(t *testing.T) {
		f := newRecommendationFixture()
		alice := f.store.addUser("alice")
		for _, name := range []string{"bob", "carol", "dave", "erin"} {
			f.store.addUser(name)
		}

		recs, err := f.recommendations.GetRecommendations(ctx, alice.ID, 2)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("over-asking clamps to the maximum, not the default", func(t *testing.T) {
		f := newRecommendationFixture()
		alice := f.store.addUser("alice")
		for _, name := range []string{
			"bob", "carol", "dave", "erin", "frank", "grace",
			"heidi", "ivan", "judy", "kevin", "laura", "mike",
		} {
			f.store.addUser(name)
		}

		// Twelve candidates exist; a limit above the cap must not collapse
		// to the default of ten.
		recs, err := f.recommendations.GetRecommendations(ctx, alice.ID, 500)
		require.NoError(t, err)
		assert.Len(t, recs, 12)
	})

	t.Run("empty result when everyone is connected", func(t *testing.T) {
		f := newRecommendationFixture()
		alice := f.store.addUser("alice")
		bob := f.store.addUser("bob")
		mustBefriend(t, f.friendServiceFixture, alice.ID, bob.ID)

		recs, err := f.recommendations.GetRecommendations(ctx, alice.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
