// Package autoload initializes the global logger from environment
// configuration when blank-imported.
package autoload

import (
	configx "github.com/tanpawarit/cakeshop-assistant/pkg/config"
	logx "github.com/tanpawarit/cakeshop-assistant/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
