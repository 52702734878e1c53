package sqlgen

import (
	"strconv"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/ir"
)

// top writes SQL Server's TOP n when the select is limited but not offset
func (w *writer) top(s *ir.Select) {
	if w.p.Paging() != dialect.PagingTopOffsetFetch {
		return
	}
	if s.Limit != nil && s.Offset == nil {
		w.write("TOP ", strconv.Itoa(*s.Limit), " ")
	}
}

// offsetFetch writes OFFSET ... ROWS FETCH NEXT ... ROWS ONLY. T-SQL requires an
// ORDER BY for OFFSET, so an unordered select orders by a constant.
func (w *writer) offsetFetch(s *ir.Select) {
	if s.Offset == nil {
		return
	}
	if len(s.OrderBy) == 0 {
		w.write(" ORDER BY (SELECT NULL)")
	}
	w.write(" OFFSET ", strconv.Itoa(*s.Offset), " ROWS")
	if s.Limit != nil {
		w.write(" FETCH NEXT ", strconv.Itoa(*s.Limit), " ROWS ONLY")
	}
}
