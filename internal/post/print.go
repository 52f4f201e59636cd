package post

import (
	"log"
	"time"

	"github.com/locate918/roadmap/plan"
)

const dateFmt = "2006-01-02"

func ToStdout(groups map[time.Time]plan.Entries) error {
	f := log.Flags()
	log.SetFlags(0)
	for _, date := range sortedDays(groups) {
		log.Printf("%s\n", date.Format(dateFmt))
		for i, e := range groups[date] {
			log.Printf("#%d %s", i, e)
		}
	}
	log.SetFlags(f)
	return nil
}
