package raft

import "github.com/IgGusev/ignite-3/pkg/xlog"

func init() {
	SetLogger(xlog.NewLogger("raft", xlog.CRITICAL))
}
