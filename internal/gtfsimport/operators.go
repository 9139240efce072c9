package gtfsimport

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jamespfennell/gtfs"

	"github.com/gladetimes/tapaastimes/busdb"
)

func (im *Importer) importOperators(ctx context.Context, st *runState) error {
	for i := range st.feed.Agencies {
		noc, err := im.handleAgency(ctx, st, &st.feed.Agencies[i])
		if err != nil {
			return err
		}
		st.operators[st.feed.Agencies[i].Id] = noc
	}
	im.logger.Info("agencies processed", slog.Int("operators", len(st.operators)))
	return nil
}

// handleAgency finds or creates the operator for one agency row and returns
// its NOC. Feeds without stable agency ids can force a fixed NOC or fall
// back to the first word of the agency name.
func (im *Importer) handleAgency(ctx context.Context, st *runState, agency *gtfs.Agency) (string, error) {
	noc := agency.Id
	if noc == "" {
		switch {
		case im.cfg.GTFS.OperatorNOC != "":
			noc = im.cfg.GTFS.OperatorNOC
		case agency.Name != "":
			noc = firstWord(agency.Name)
		default:
			noc = firstWord(im.cfg.Name)
		}
	}
	if im.cfg.GTFS.AgencyPrefix != "" {
		noc = im.cfg.GTFS.AgencyPrefix + noc
	}

	var op busdb.Operator
	var err error
	switch im.cfg.GTFS.OperatorMatching {
	case "name":
		op, err = st.q.GetOperatorByName(ctx, agency.Name)
	case "url":
		if agency.Url != "" {
			op, err = st.q.GetOperatorByURL(ctx, agency.Url)
		} else {
			err = sql.ErrNoRows
		}
	default:
		op, err = st.q.GetOperatorByNOC(ctx, noc)
	}

	if errors.Is(err, sql.ErrNoRows) {
		op = busdb.Operator{NOC: noc, Name: agency.Name, URL: agency.Url}
		if err := st.q.CreateOperator(ctx, op); err != nil {
			return "", err
		}
		return op.NOC, nil
	}
	if err != nil {
		return "", err
	}
	if op.URL != agency.Url {
		if err := st.q.UpdateOperatorURL(ctx, op.NOC, agency.Url); err != nil {
			return "", err
		}
	}
	return op.NOC, nil
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	return truncate(s, 10)
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
