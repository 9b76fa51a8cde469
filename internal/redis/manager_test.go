package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/modmail-dev/modmail/internal/redis"
	"github.com/modmail-dev/modmail/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerReusesClients(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	defer manager.Close()

	first, err := manager.GetClient(redis.SessionDBIndex)
	require.NoError(t, err)

	second, err := manager.GetClient(redis.SessionDBIndex)
	require.NoError(t, err)
	assert.Same(t, first, second)

	const otherDB = redis.SessionDBIndex + 1

	state, err := manager.GetClient(otherDB)
	require.NoError(t, err)
	assert.NotSame(t, first, state)

	require.NoError(t, first.Do(t.Context(), first.B().Set().Key("k").Value("v").Build()).Error())
	assert.True(t, mr.DB(redis.SessionDBIndex).Exists("k"))
	assert.False(t, mr.DB(otherDB).Exists("k"))
}
