package main

import (
	"os"

	"github.com/ether/revlog/lib/cli"
	"github.com/ether/revlog/lib/loadtest"
	"github.com/ether/revlog/lib/migration"
	"github.com/ether/revlog/lib/server"
	"github.com/ether/revlog/lib/settings"
	"github.com/ether/revlog/lib/utils"
)

// @title Revlog API
// @version 1.0
// @description Structural version history for JSON records
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:9001
// @BasePath /
func main() {
	setupLogger := utils.SetupLogger()
	defer setupLogger.Sync()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			settings.HandleConfigCommand(setupLogger)
		case "watch":
			cli.RunFromCLI(setupLogger, os.Args[2:])
			return
		case "loadtest":
			loadtest.RunFromCLI(setupLogger, os.Args[2:])
			return
		case "multiload":
			loadtest.RunMultiFromCLI(setupLogger, os.Args[2:])
			return
		case "import":
			migration.RunFromCLI(setupLogger, os.Args[2:])
			return
		}
	}

	server.InitServer(setupLogger)
}
