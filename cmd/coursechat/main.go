// Package main is the entry point for the CourseChat server.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/coursechat-io/coursechat/cmd/coursechat/app"
)

func main() {
	app.NewApp().Run()
}
