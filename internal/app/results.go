package app

import (
	"context"
	"math"
	"sort"

	"github.com/samber/lo"

	"quizlink-service/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	recentActivity  = 10
)

// TeacherReport is every stored result with the overall average.
type TeacherReport struct {
	Results       []domain.ResultRecord `json:"results"`
	TotalStudents int                   `json:"totalStudents"`
	AverageScore  int                   `json:"averageScore"`
}

// Aggregator answers read-only questions over stored results and links.
type Aggregator struct {
	results ResultStore
	links   LinkStore
}

func NewAggregator(results ResultStore, links LinkStore) *Aggregator {
	return &Aggregator{results: results, links: links}
}

// SummaryForQuiz rolls up every result of one quiz.
func (a *Aggregator) SummaryForQuiz(ctx context.Context, quizID string) (domain.QuizSummary, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.SummaryForQuiz")
	defer span.End()

	records, err := a.results.ListResultsByQuiz(ctx, quizID)
	recordSpanError(span, err)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return summarize(quizID, records), nil
}

func summarize(quizID string, records []domain.ResultRecord) domain.QuizSummary {
	summary := domain.QuizSummary{QuizID: quizID, TotalSubmissions: len(records)}
	if len(records) == 0 {
		return summary
	}
	summary.AverageScore = averagePercentage(records)
	summary.EarliestSubmission = lo.MinBy(records, func(a, b domain.ResultRecord) bool {
		return a.Result.SubmittedAt.Before(b.Result.SubmittedAt)
	}).Result.SubmittedAt
	summary.LatestSubmission = lo.MaxBy(records, func(a, b domain.ResultRecord) bool {
		return a.Result.SubmittedAt.After(b.Result.SubmittedAt)
	}).Result.SubmittedAt
	return summary
}

// SummaryForAdmin counts an admin's links and lists their most recent results.
func (a *Aggregator) SummaryForAdmin(ctx context.Context, adminID string) (domain.AdminSummary, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.SummaryForAdmin")
	defer span.End()

	links, err := a.links.ListLinksByAdmin(ctx, adminID)
	if err != nil {
		recordSpanError(span, err)
		return domain.AdminSummary{}, err
	}
	records, err := a.results.ListResultsByAdmin(ctx, adminID)
	recordSpanError(span, err)
	if err != nil {
		return domain.AdminSummary{}, err
	}

	sortResults(records)
	recent := make([]domain.ResultRecord, 0, recentActivity)
	for i := len(records) - 1; i >= 0 && len(recent) < recentActivity; i-- {
		recent = append(recent, records[i])
	}

	return domain.AdminSummary{
		AdminID:           adminID,
		TotalLinksCreated: len(links),
		ActiveLinks: lo.CountBy(links, func(l domain.QuizLink) bool {
			return !l.Exhausted()
		}),
		TotalStudentsServed: lo.SumBy(links, func(l domain.QuizLink) int {
			return len(l.Participants)
		}),
		RecentActivity: recent,
	}, nil
}

// ListQuizzes summarizes every quiz that has at least one result, most recently submitted first.
// Ties fall back to quiz ID.
func (a *Aggregator) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.ListQuizzes")
	defer span.End()

	records, err := a.results.ListResults(ctx)
	recordSpanError(span, err)
	if err != nil {
		return nil, err
	}

	grouped := lo.GroupBy(records, func(r domain.ResultRecord) string { return r.QuizID })
	summaries := lo.MapToSlice(grouped, func(id string, records []domain.ResultRecord) domain.QuizSummary {
		return summarize(id, records)
	})
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.LatestSubmission.Equal(b.LatestSubmission) {
			return a.LatestSubmission.After(b.LatestSubmission)
		}
		return a.QuizID < b.QuizID
	})
	return summaries, nil
}

// PageOfResults returns one page of a quiz's results, oldest first. page starts at 1;
// pageSize defaults to DefaultPageSize and is capped at MaxPageSize. Pages past the end are empty.
func (a *Aggregator) PageOfResults(ctx context.Context, quizID string, page, pageSize int) (domain.ResultPage, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.PageOfResults")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	// Pages too far out to address still read as empty.
	offset := math.MaxInt - pageSize
	if page-1 <= offset/pageSize {
		offset = (page - 1) * pageSize
	}

	var (
		items []domain.ResultRecord
		total int
		err   error
	)
	if pager, ok := a.results.(ResultPager); ok {
		items, total, err = pager.PageResultsByQuiz(ctx, quizID, offset, pageSize)
	} else {
		var all []domain.ResultRecord
		all, err = a.results.ListResultsByQuiz(ctx, quizID)
		sortResults(all)
		total = len(all)
		items = lo.Slice(all, offset, offset+pageSize)
	}
	recordSpanError(span, err)
	if err != nil {
		return domain.ResultPage{}, err
	}
	if items == nil {
		items = []domain.ResultRecord{}
	}

	return domain.ResultPage{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: max(1, (total+pageSize-1)/pageSize),
	}, nil
}

// Detail returns one stored result.
func (a *Aggregator) Detail(ctx context.Context, submissionID string) (domain.ResultRecord, error) {
	return a.results.GetResult(ctx, submissionID)
}

// AllResults lists every result with the overall average, for the teacher view.
func (a *Aggregator) AllResults(ctx context.Context) (TeacherReport, error) {
	records, err := a.results.ListResults(ctx)
	if err != nil {
		return TeacherReport{}, err
	}
	sortResults(records)
	return TeacherReport{
		Results:       records,
		TotalStudents: len(records),
		AverageScore:  averagePercentage(records),
	}, nil
}

func averagePercentage(records []domain.ResultRecord) int {
	sum := lo.SumBy(records, func(r domain.ResultRecord) int { return r.Result.Percentage })
	return roundHalfUp(sum, len(records))
}

func sortResults(records []domain.ResultRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Result.SubmittedAt, records[j].Result.SubmittedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return records[i].SubmissionID < records[j].SubmissionID
	})
}
