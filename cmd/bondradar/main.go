package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"bondradar/pkg/analyzer"
	"bondradar/pkg/cache"
	"bondradar/pkg/classify"
	"bondradar/pkg/config"
	"bondradar/pkg/engine"
	"bondradar/pkg/fetch"
	"bondradar/pkg/ledger"
	"bondradar/pkg/logger"
	"bondradar/pkg/report"
	"bondradar/pkg/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	inputPath := flag.String("input", "", "待处理文章清单 (JSON)")
	fromCache := flag.Bool("from-cache", false, "重新分析今日缓存文章")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("配置错误: 未设置 llm.api_key")
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动债市评论分析...")

	ctx := context.Background()

	// 3. 初始化缓存与台账（不可用则无法继续）
	store, err := cache.NewStore(cfg.Cache.Root)
	if err != nil {
		logger.Log.Fatalf("初始化文章缓存失败: %v", err)
	}
	dedupLedger, err := ledger.Open(cfg.Ledger.Path, ledger.Scope(cfg.Ledger.Scope))
	if err != nil {
		logger.Log.Fatalf("初始化去重台账失败: %v", err)
	}
	logger.Log.Infof("台账已载入 %d 条记录 (范围: %s)", dedupLedger.Len(), cfg.Ledger.Scope)

	// 4. 初始化限流器与 LLM
	limit := rate.Limit(float64(cfg.Concurrency.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, cfg.Concurrency.QPS)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", limit, cfg.Concurrency.QPS)

	articleAnalyzer, err := analyzer.New(ctx, cfg.LLM, limiter)
	if err != nil {
		logger.Log.Fatalf("初始化分析器失败: %v", err)
	}

	// 5. 可选数据库归档
	var archive *storage.Storage
	if cfg.DB.Host != "" {
		s, err := storage.NewStorage(cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 将仅生成文本报告。", err)
		} else {
			archive = s
			defer archive.Close()
			logger.Log.Info("已成功连接到数据库")
		}
	} else {
		logger.Log.Info("未配置数据库信息，跳过归档")
	}

	// 6. 组装引擎
	eng := engine.New(cfg, engine.Deps{
		Classifier: classify.New(nil),
		Ledger:     dedupLedger,
		Store:      store,
		Fetcher:    fetch.NewReadabilityFetcher(time.Duration(cfg.Crawl.FetchTimeoutSeconds) * time.Second),
		Analyzer:   articleAnalyzer,
		Archive:    archive,
		Reporter:   report.NewGenerator(cfg.Output.Dir),
	})

	// 7. 运行
	var result *engine.RunResult
	if *fromCache {
		result, err = eng.RunFromCache(ctx)
	} else {
		if *inputPath == "" {
			logger.Log.Fatal("请通过 -input 指定文章清单，或使用 -from-cache 重新分析今日缓存")
		}
		raws, rErr := loadRawArticles(*inputPath)
		if rErr != nil {
			logger.Log.Fatalf("读取文章清单失败: %v", rErr)
		}
		result, err = eng.Run(ctx, raws)
	}
	if err != nil {
		logger.Log.Fatalf("运行失败: %v", err)
	}

	if result.Succeeded == 0 {
		logger.Log.Error("本次运行没有成功分析任何文章")
		os.Exit(1)
	}
	logger.Log.Infof("✅ 分析完成: %s", result.ReportPath)
}

func loadRawArticles(path string) ([]engine.RawArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raws []engine.RawArticle
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	return raws, nil
}
