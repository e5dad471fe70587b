// Package logging builds the zap loggers every component writes through.
//
// Development mode writes colored console lines; otherwise entries are
// JSON. Components take a named child with Component, and code running
// for one tab tags its entries with ForTab so a tab's navigations can be
// followed through the log:
//
//	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level})
//	tabLog := logger.Component("tab").ForTab(tabID.String())
//	tabLog.Debug("commit classified", zap.Stringer("type", details.Type))
package logging
