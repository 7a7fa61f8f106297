package store

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	idPrefixUser         = "user"
	idPrefixTrack        = "track"
	idPrefixPlaylist     = "playlist"
	idPrefixConversation = "conv"
	idPrefixMessage      = "msg"
	idPrefixComment      = "comment"
	idPrefixNotification = "notif"
	idPrefixFollow       = "follow"
	idPrefixProject      = "project"
	idPrefixApplication  = "app"

	idSuffixLen = 9
	base36      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// newID returns "<prefix>_<unixMillis>_<9 base36 chars>".
func newID(prefix string, now time.Time) string {
	var b strings.Builder
	b.Grow(len(prefix) + 24)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < idSuffixLen; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
