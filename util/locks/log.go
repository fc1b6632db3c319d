package locks

import (
	"github.com/nyx-project/nyxd/logger"
	"github.com/nyx-project/nyxd/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.LOCK)

var spawn = panics.GoroutineWrapperFunc(log)
