package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finanzen/internal/cache"
	"finanzen/internal/core"
	"finanzen/internal/storage"
)

// Period names a statistics time range ending today.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
	PeriodCustom  Period = "custom"
)

// GroupBy is the bucket size of a time series.
type GroupBy string

const (
	GroupDay   GroupBy = "day"
	GroupWeek  GroupBy = "week"
	GroupMonth GroupBy = "month"
)

// strftime layouts of the time series buckets. Weeks are Monday-based.
var groupLayouts = map[GroupBy]string{
	GroupDay:   "%Y-%m-%d",
	GroupWeek:  "%Y-W%W",
	GroupMonth: "%Y-%m",
}

const (
	topCategoriesLimit = 5
	recentLimit        = 10
)

// StatsService computes dashboard and report figures. Results are memoized
// until Invalidate is called.
type StatsService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time

	dashboard  *cache.Memo[core.DashboardSummary]
	byCategory *cache.Memo[core.StatsByCategory]
	overTime   *cache.Memo[core.StatsOverTime]
}

// NewStatsService creates the service; ttl bounds how long a cached result
// is served.
func NewStatsService(storage *storage.SQLiteRepository, ttl time.Duration) *StatsService {
	return &StatsService{
		storage:    storage,
		now:        time.Now,
		dashboard:  cache.NewMemo(cache.NewLRUCache[core.DashboardSummary](4, ttl)),
		byCategory: cache.NewMemo(cache.NewLRUCache[core.StatsByCategory](32, ttl)),
		overTime:   cache.NewMemo(cache.NewLRUCache[core.StatsOverTime](32, ttl)),
	}
}

// Invalidate discards cached results after data changed.
func (s *StatsService) Invalidate() {
	s.dashboard.Invalidate()
	s.byCategory.Invalidate()
	s.overTime.Invalidate()
}

// CacheStats sums hits and misses over all memoized reports.
func (s *StatsService) CacheStats() (hits, misses uint64) {
	for _, stats := range []func() (uint64, uint64){s.dashboard.Stats, s.byCategory.Stats, s.overTime.Stats} {
		h, m := stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// RegisterCleanup hands the caches to m for expiry cleanup.
func (s *StatsService) RegisterCleanup(m *cache.Manager) {
	m.Register(s.dashboard)
	m.Register(s.byCategory)
	m.Register(s.overTime)
}

func (s *StatsService) today() core.Date {
	return core.DateOf(s.now())
}

// Dashboard returns the start page overview for the current month.
func (s *StatsService) Dashboard(ctx context.Context) (core.DashboardSummary, error) {
	today := s.today()
	return s.dashboard.Get(today.String(), func() (core.DashboardSummary, error) {
		return s.loadDashboard(ctx, today)
	})
}

func (s *StatsService) loadDashboard(ctx context.Context, today core.Date) (core.DashboardSummary, error) {
	q := s.storage.Queries()
	monthStart := startOfMonth(today)
	prevStart := core.Date{Time: monthStart.AddDate(0, -1, 0)}
	prevEnd := core.Date{Time: monthStart.AddDate(0, 0, -1)}

	var (
		out                  core.DashboardSummary
		balance              *int64
		income, expenses     int64
		prevIncome, prevExps int64
		top                  []storage.CategoryTotal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = q.LatestBalance(gctx)
		return err
	})
	g.Go(func() (err error) {
		income, expenses, err = q.PeriodTotals(gctx, monthStart, today)
		return err
	})
	g.Go(func() (err error) {
		prevIncome, prevExps, err = q.PeriodTotals(gctx, prevStart, prevEnd)
		return err
	})
	g.Go(func() (err error) {
		top, err = q.TopExpenseCategories(gctx, monthStart, today, topCategoriesLimit)
		return err
	})
	g.Go(func() (err error) {
		out.UncategorizedCount, err = q.CountUncategorized(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentTransactions, err = q.ListRecentTransactions(gctx, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load dashboard: %w", err)
	}

	out.CurrentBalance = core.DecimalPtr(balance)
	out.IncomeCurrentMonth = core.FromCents(income)
	out.ExpensesCurrentMonth = core.FromCents(expenses)
	out.IncomePreviousMonth = core.FromCents(prevIncome)
	out.ExpensesPreviousMonth = core.FromCents(prevExps)
	out.TopCategories = make([]core.CategoryAmount, 0, len(top))
	for _, ct := range top {
		out.TopCategories = append(out.TopCategories, core.CategoryAmount{
			CategoryID:    ct.CategoryID,
			CategoryName:  ct.Name,
			CategoryColor: ct.Color,
			Total:         core.FromCents(ct.TotalCents).Abs(),
		})
	}
	if out.RecentTransactions == nil {
		out.RecentTransactions = []core.Transaction{}
	}
	return out, nil
}

// ByCategory returns every category's total in the period, the
// uncategorized bucket when it has bookings, and the overall income and
// expenses. Rows are sorted by total, largest first.
func (s *StatsService) ByCategory(ctx context.Context, period Period, start, end *core.Date) (core.StatsByCategory, error) {
	from, to, err := ResolvePeriod(period, s.today(), start, end)
	if err != nil {
		return core.StatsByCategory{}, err
	}
	key := from.String() + "|" + to.String()
	return s.byCategory.Get(key, func() (core.StatsByCategory, error) {
		return s.loadByCategory(ctx, from, to)
	})
}

func (s *StatsService) loadByCategory(ctx context.Context, from, to core.Date) (core.StatsByCategory, error) {
	q := s.storage.Queries()
	totals, err := q.CategoryTotals(ctx, from, to)
	if err != nil {
		return core.StatsByCategory{}, fmt.Errorf("category totals: %w", err)
	}
	uncatCents, uncatCount, err := q.UncategorizedTotals(ctx, from, to)
	if err != nil {
		return core.StatsByCategory{}, fmt.Errorf("uncategorized totals: %w", err)
	}

	months := decimal.NewFromInt(int64(monthsBetween(from, to)))
	out := core.StatsByCategory{
		Categories:    make([]core.CategoryStats, 0, len(totals)+1),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	add := func(id *int64, name, color string, cents int64, count int) {
		net := core.FromCents(cents)
		if net.IsPositive() {
			out.TotalIncome = out.TotalIncome.Add(net)
		} else {
			out.TotalExpenses = out.TotalExpenses.Add(net.Abs())
		}
		total := net.Abs()
		out.Categories = append(out.Categories, core.CategoryStats{
			CategoryID:       id,
			CategoryName:     name,
			CategoryColor:    color,
			Total:            total,
			AverageMonthly:   total.DivRound(months, 2),
			TransactionCount: count,
		})
	}
	for _, ct := range totals {
		id := ct.CategoryID
		add(&id, ct.Name, ct.Color, ct.TotalCents, ct.Count)
	}
	if uncatCount > 0 {
		add(nil, core.UncategorizedLabel, core.UncategorizedColor, uncatCents, uncatCount)
	}

	sort.SliceStable(out.Categories, func(i, j int) bool {
		return out.Categories[i].Total.GreaterThan(out.Categories[j].Total)
	})
	return out, nil
}

// OverTime returns income and expenses per bucket. Fixed periods choose
// their own bucket size; custom ranges use groupBy.
func (s *StatsService) OverTime(ctx context.Context, period Period, groupBy GroupBy, start, end *core.Date) (core.StatsOverTime, error) {
	if period == "" {
		period = PeriodYear
	}
	switch period {
	case PeriodMonth:
		groupBy = GroupDay
	case PeriodQuarter:
		groupBy = GroupWeek
	case PeriodYear:
		groupBy = GroupMonth
	case PeriodCustom:
		if groupBy == "" {
			groupBy = GroupMonth
		}
	default:
		return core.StatsOverTime{}, core.Invalid("period", "must be month, quarter, year or custom")
	}
	layout, ok := groupLayouts[groupBy]
	if !ok {
		return core.StatsOverTime{}, core.Invalid("group_by", "must be day, week or month")
	}

	from, to, err := ResolvePeriod(period, s.today(), start, end)
	if err != nil {
		return core.StatsOverTime{}, err
	}
	key := string(groupBy) + "|" + from.String() + "|" + to.String()
	return s.overTime.Get(key, func() (core.StatsOverTime, error) {
		buckets, err := s.storage.Queries().TimeSeries(ctx, layout, from, to)
		if err != nil {
			return core.StatsOverTime{}, fmt.Errorf("time series: %w", err)
		}
		out := core.StatsOverTime{
			Data:          make([]core.TimeSeriesPoint, 0, len(buckets)),
			TotalIncome:   decimal.Zero,
			TotalExpenses: decimal.Zero,
		}
		for _, b := range buckets {
			p := core.TimeSeriesPoint{
				Date:     b.Key,
				Income:   core.FromCents(b.IncomeCents),
				Expenses: core.FromCents(b.ExpensesCents),
			}
			out.TotalIncome = out.TotalIncome.Add(p.Income)
			out.TotalExpenses = out.TotalExpenses.Add(p.Expenses)
			out.Data = append(out.Data, p)
		}
		return out, nil
	})
}

// ResolvePeriod returns the date range of period ending today. Custom
// periods take start and end as given and require both.
func ResolvePeriod(period Period, today core.Date, start, end *core.Date) (core.Date, core.Date, error) {
	switch period {
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return core.Date{Time: today.AddDate(0, 0, -offset)}, today, nil
	case "", PeriodMonth:
		return startOfMonth(today), today, nil
	case PeriodQuarter:
		month := (int(today.Month())-1)/3*3 + 1
		return core.NewDate(today.Year(), month, 1), today, nil
	case PeriodYear:
		return core.NewDate(today.Year(), 1, 1), today, nil
	case PeriodCustom:
		if start == nil || end == nil {
			return core.Date{}, core.Date{}, core.Invalid("start_date", "custom periods need start_date and end_date")
		}
		if end.Before(start.Time) {
			return core.Date{}, core.Date{}, core.Invalid("end_date", "must not be before start_date")
		}
		return *start, *end, nil
	default:
		return core.Date{}, core.Date{}, core.Invalid("period", "unsupported period %q", period)
	}
}

func startOfMonth(d core.Date) core.Date {
	return core.NewDate(d.Year(), int(d.Month()), 1)
}

// monthsBetween counts the calendar months touched by [from, to], at least one.
func monthsBetween(from, to core.Date) int {
	n := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
	if n < 1 {
		return 1
	}
	return n
}
