package api

import (
	"github.com/ether/revlog/lib"
	"github.com/ether/revlog/lib/api/records"
	"github.com/ether/revlog/lib/api/stats"
)

func InitAPI(store *lib.InitStore) {
	records.Init(store)
	stats.Init(store)
}
