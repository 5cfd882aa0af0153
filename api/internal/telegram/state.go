package telegram

import (
	"sync"
	"sync/atomic"
)

var chatSeq sync.Map // chatID -> *atomic.Uint64

func seqOf(chatID int64) *atomic.Uint64 {
	v, _ := chatSeq.LoadOrStore(chatID, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

// nextSeq supersedes whatever analysis the chat has in flight.
func nextSeq(chatID int64) uint64 { return seqOf(chatID).Add(1) }

func isLatest(chatID int64, seq uint64) bool { return seqOf(chatID).Load() == seq }
