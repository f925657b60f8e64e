package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-meshnode/internal/directory"
	"github.com/dep2p/go-meshnode/internal/util/logger"
	"github.com/dep2p/go-meshnode/pkg/types"
)

// SpawnMesh 在同一进程内启动 instances 个引导节点
//
// 第 i 个实例使用目录项 i 的种子与端口，以前 i 条目录项作为路由种子；
// 相邻实例之间间隔 bootstrap.stagger。单个实例构建或运行失败只记录日志，
// 不影响其它实例；全部实例退出后返回合并的错误。ctx 取消不视为错误。
func SpawnMesh(ctx context.Context, instances int, opts ...Option) error {
	o := newOptions(opts)
	dir, err := o.directory()
	if err != nil {
		return err
	}
	if instances < 1 || instances > dir.Len() {
		return fmt.Errorf("%w: %d instances, directory has %d entries",
			directory.ErrInsufficientEntries, instances, dir.Len())
	}
	log := logger.Named(o.log, "mesh")
	stagger := o.cfg.Bootstrap.Stagger.Std()

	// 每个实例共享同一张目录表
	opts = append(append([]Option(nil), opts...), WithDirectory(dir))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	record := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

spawn:
	for i := 0; i < instances; i++ {
		if i > 0 && stagger > 0 {
			t := o.clk.Timer(stagger)
			select {
			case <-ctx.Done():
				t.Stop()
				break spawn
			case <-t.C:
			}
		}

		entry, err := dir.Entry(i)
		if err != nil {
			record(err)
			break
		}
		seeds, err := dir.Slice(i)
		if err != nil {
			record(err)
			break
		}

		index := i
		spec := RoleSpec{
			Role:  types.RoleBootstrap,
			Port:  entry.Port,
			Seeds: seeds,
			Name:  fmt.Sprintf("bootstrap-%d", index),
		}
		log.Info("启动实例", "index", index, "seed", entry.Seed, "port", entry.Port, "seeds", len(seeds))

		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := NewBuilder(spec, opts...).WithSeededKey(entry.Seed).Build(ctx)
			if err != nil {
				log.Error("实例构建失败", "index", index, "error", err)
				record(err)
				return
			}
			defer n.Close()
			if o.onBuilt != nil {
				o.onBuilt(index, n)
			}

			if err := n.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				log.Error("实例异常退出", "index", index, "error", err)
				record(fmt.Errorf("%s: %w", spec.Name, err))
			}
		}()
	}

	wg.Wait()
	return errs
}
