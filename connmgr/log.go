// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"time"

	"github.com/nyx-project/nyxd/logger"
	"github.com/nyx-project/nyxd/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.CONN)

var spawn = panics.GoroutineWrapperFunc(log)

var spawnAfterWrapped = panics.AfterFuncWrapperFunc(log)

func spawnAfter(d time.Duration, f func()) *time.Timer {
	return spawnAfterWrapped(d, f)
}
