// Package common provides the configuration and logging shared by the ddoc
// server and command line tools.
//
// Key Components:
//
//   - ServerConfig: Configuration of the HTTP server (endpoint, data directory,
//     sweep interval, Basic auth users, log level). Its String method renders
//     the summary printed at startup.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger package, so every package obtains its logger with
//     logger.GetLogger(name) and all lines share the LEVEL | pkg | message
//     format. InitLoggers installs the factory and sets the level.
package common
