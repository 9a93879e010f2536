package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGetDelete(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, s.Set("jira-behat@https://jira.example.com", "secret"))

	got, err := s.Get("jira-behat@https://jira.example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	require.NoError(t, s.Delete("jira-behat@https://jira.example.com"))

	_, err = s.Get("jira-behat@https://jira.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteMissingKey(t *testing.T) {
	s := NewStore(keyring.NewArrayKeyring(nil))
	assert.NoError(t, s.Delete("absent"))
}
