package gtfsimport

import (
	"context"

	"github.com/gladetimes/tapaastimes/busdb"
)

const dateFormat = "20060102"

func (im *Importer) importCalendars(ctx context.Context, st *runState) error {
	for i := range st.feed.Services {
		feedService := &st.feed.Services[i]
		calendar := busdb.Calendar{
			SourceID:  st.source.ID,
			Code:      feedService.Id,
			Monday:    feedService.Monday,
			Tuesday:   feedService.Tuesday,
			Wednesday: feedService.Wednesday,
			Thursday:  feedService.Thursday,
			Friday:    feedService.Friday,
			Saturday:  feedService.Saturday,
			Sunday:    feedService.Sunday,
			StartDate: feedService.StartDate.Format(dateFormat),
			EndDate:   feedService.EndDate.Format(dateFormat),
		}
		id, err := st.q.CreateCalendar(ctx, calendar)
		if err != nil {
			return err
		}
		st.calendars[feedService.Id] = id

		for _, date := range feedService.AddedDates {
			err := st.q.CreateCalendarDate(ctx, busdb.CalendarDate{
				CalendarID: id,
				Date:       date.Format(dateFormat),
				Operation:  true,
			})
			if err != nil {
				return err
			}
		}
		for _, date := range feedService.RemovedDates {
			err := st.q.CreateCalendarDate(ctx, busdb.CalendarDate{
				CalendarID: id,
				Date:       date.Format(dateFormat),
				Operation:  false,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
