// Пакет collector — постраничный обход коллекций Metabase с параллельной
// загрузкой деталей и ранним выходом по достижении лимита результатов.
//
// Коллекции обходятся последовательно в порядке scope, страницы одной
// коллекции — тоже последовательно. Детали элементов страницы загружаются
// пулом фиксированной ширины; завершения обрабатываются одним потребителем
// в порядке поступления. Порядок результата не детерминирован — его
// восстанавливает сортировка на стороне вызывающего.
package collector

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

// Исходы загрузки деталей для метрики rm_collector_details_total.
const (
	outcomeAccepted  = "accepted"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
	outcomeDiscarded = "discarded"
)

var (
	listCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_collector_list_calls_total",
			Help: "Количество запросов страниц листинга коллекций",
		},
		[]string{"collector"},
	)

	detailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rm_collector_details_total",
			Help: "Количество задач загрузки деталей по исходу",
		},
		[]string{"collector", "outcome"},
	)
)

// ListFunc возвращает страницу ссылок коллекции. nil или пустой срез — данных больше нет.
type ListFunc[R any] func(ctx context.Context, collectionID string, limit, offset int) []R

// FetchFunc загружает детали по ссылке. false — деталей нет (ошибка, битый ответ).
type FetchFunc[R, D any] func(ctx context.Context, ref R) (D, bool)

// Options — параметры обхода.
type Options struct {
	// Name — метка collector в метриках
	Name string
	// PageSize — размер страницы листинга
	PageSize int
	// MaxResults — максимальное число результатов
	MaxResults int
	// Workers — ширина пула загрузки деталей
	Workers int
}

// Collector обходит коллекции и собирает не более MaxResults принятых деталей.
type Collector[R, D any] struct {
	opts   Options
	logger *slog.Logger
}

// New создаёт Collector. Workers < 1 трактуется как 1.
func New[R, D any](opts Options, logger *slog.Logger) *Collector[R, D] {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Collector[R, D]{
		opts:   opts,
		logger: logger.With(slog.String("component", "collector"), slog.String("collector", opts.Name)),
	}
}

// Collect обходит scope и возвращает не более MaxResults деталей, для которых accept вернул true.
// Пустой scope или MaxResults <= 0 — пустой результат без единого вызова list.
// Ошибки list и fetch не прерывают обход.
func (c *Collector[R, D]) Collect(
	ctx context.Context,
	scope []string,
	list ListFunc[R],
	fetch FetchFunc[R, D],
	accept func(D) bool,
) []D {
	results := make([]D, 0, max(c.opts.MaxResults, 0))
	if len(scope) == 0 || c.opts.MaxResults <= 0 || c.opts.PageSize <= 0 {
		return results
	}

	listCalls := 0
	for _, collectionID := range scope {
		if c.reached(results) || ctx.Err() != nil {
			break
		}

		offset := 0
		for !c.reached(results) && ctx.Err() == nil {
			page := list(ctx, collectionID, c.opts.PageSize, offset)
			listCalls++
			listCallsTotal.WithLabelValues(c.opts.Name).Inc()

			if len(page) == 0 {
				break
			}

			results = c.consumeBatch(ctx, page, fetch, accept, results)

			// Страница короче PageSize — коллекция исчерпана.
			if len(page) < c.opts.PageSize {
				break
			}
			offset += c.opts.PageSize
		}
	}

	c.logger.Debug("Обход коллекций завершён",
		slog.Int("collections", len(scope)),
		slog.Int("list_calls", listCalls),
		slog.Int("results", len(results)),
	)
	return results
}

func (c *Collector[R, D]) reached(results []D) bool {
	return len(results) >= c.opts.MaxResults
}

// outcome — результат одной задачи загрузки деталей.
type outcome[D any] struct {
	detail D
	ok     bool
}

// consumeBatch загружает детали страницы и добавляет принятые в results.
// Возвращается только после завершения всех запущенных задач батча.
func (c *Collector[R, D]) consumeBatch(
	ctx context.Context,
	refs []R,
	fetch FetchFunc[R, D],
	accept func(D) bool,
	results []D,
) []D {
	// batchCtx отменяется по достижении лимита: ещё не начатые задачи
	// пропускаются. Уже идущие запросы получают ctx и завершаются штатно.
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome[D], len(refs))

	go func() {
		var g errgroup.Group
		g.SetLimit(c.opts.Workers)
		for _, ref := range refs {
			if batchCtx.Err() != nil {
				detailsTotal.WithLabelValues(c.opts.Name, outcomeSkipped).Inc()
				continue
			}
			g.Go(func() error {
				if batchCtx.Err() != nil {
					detailsTotal.WithLabelValues(c.opts.Name, outcomeSkipped).Inc()
					return nil
				}
				d, ok := fetch(ctx, ref)
				done <- outcome[D]{detail: d, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()

	// Единственный потребитель: results изменяется только здесь.
	for o := range done {
		switch {
		case c.reached(results):
			detailsTotal.WithLabelValues(c.opts.Name, outcomeDiscarded).Inc()
		case !o.ok:
			detailsTotal.WithLabelValues(c.opts.Name, outcomeFailed).Inc()
		case !accept(o.detail):
			detailsTotal.WithLabelValues(c.opts.Name, outcomeRejected).Inc()
		default:
			detailsTotal.WithLabelValues(c.opts.Name, outcomeAccepted).Inc()
			results = append(results, o.detail)
			if c.reached(results) {
				cancel()
			}
		}
	}
	return results
}
