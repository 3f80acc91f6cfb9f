package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "roamly/pkg/domain"
)

func TestComputeOverall(t *testing.T) {
	cases := []struct {
		name   string
		rating Rating
		want   float64
	}{
		{"all fives", Rating{Value: 5, Service: 5, Cleanliness: 5, Location: 5, Communication: 5}, 5.0},
		{"mixed rounds to one decimal", Rating{Value: 4, Service: 4, Cleanliness: 4, Location: 5, Communication: 4}, 4.2},
		{"low mixed", Rating{Value: 2, Service: 2, Cleanliness: 3, Location: 3, Communication: 3}, 2.6},
		{"all ones", Rating{Value: 1, Service: 1, Cleanliness: 1, Location: 1, Communication: 1}, 1.0},
		{"3.4 mean", Rating{Value: 3, Service: 3, Cleanliness: 3, Location: 4, Communication: 4}, 3.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.rating.ComputeOverall()
			assert.Equal(t, tc.want, tc.rating.Overall)
		})
	}
}

func TestRatingInRange(t *testing.T) {
	assert.True(t, Rating{Value: 1, Service: 5, Cleanliness: 3, Location: 2, Communication: 4}.InRange())
	assert.False(t, Rating{Value: 0, Service: 5, Cleanliness: 3, Location: 2, Communication: 4}.InRange())
	assert.False(t, Rating{Value: 1, Service: 6, Cleanliness: 3, Location: 2, Communication: 4}.InRange())
}

func TestRedacted(t *testing.T) {
	author := id.NewUserID()

	t.Run("anonymous drops the author", func(t *testing.T) {
		r := &Review{AuthorID: author, Anonymous: true}
		assert.True(t, r.Redacted().AuthorID.IsNil())
		assert.Equal(t, author, r.AuthorID)
	})

	t.Run("named reviews keep the author", func(t *testing.T) {
		r := &Review{AuthorID: author}
		assert.Equal(t, author, r.Redacted().AuthorID)
	})
}
