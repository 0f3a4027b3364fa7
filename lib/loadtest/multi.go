package loadtest

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StartMultiLoadTest fans out over several records at once. Each child
// process runs the single-record load test against its own fresh record,
// so the server sees writes spread across many change-set logs instead
// of one contended one.
func StartMultiLoadTest(logger *zap.SugaredLogger, host string, maxRecords int) {
	if maxRecords <= 0 {
		maxRecords = 10
	}

	fmt.Printf("Starting multi-record load test: %d records for 30 seconds each\n", maxRecords)

	executable, err := os.Executable()
	if err != nil {
		logger.Errorf("Failed to get executable path: %v", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	for i := 0; i < maxRecords; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			// Same binary, 'loadtest' subcommand. Leaving the record out of
			// the host makes every child pick its own random record.
			cmd := exec.Command(executable, "loadtest", host, "-w", "3", "-d", "30")
			cmd.Env = append(os.Environ(), "SILENT_METRICS=true")

			output, err := cmd.CombinedOutput()
			if err != nil {
				fmt.Printf("Child process %d exited with error: %v\n", id, err)
				fmt.Printf("Output: %s\n", string(output))
				fmt.Println("total records loaded:", id)
				os.Exit(1)
			}
		}(i)

		// Small delay between starts to not overwhelm everything at once
		time.Sleep(100 * time.Millisecond)
	}

	wg.Wait()
	fmt.Println("Multi-record load test completed successfully")
}
