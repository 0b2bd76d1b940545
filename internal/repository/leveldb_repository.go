// internal/repository/leveldb_repository.go
package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/unclebandit/crowdfund-backend/internal/address"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

var (
	campaignPrefix      = []byte("campaign/")
	contributionPrefix  = []byte("contribution/")
	campaignIndexPrefix = []byte("campaign-contribution/")
	balancePrefix       = []byte("balance/")

	errReadOnly = errors.New("ledger transaction is read-only")
)

// LevelRepository keeps the ledger in an embedded LevelDB. Update holds the
// database's single write transaction, so operations are serialized.
type LevelRepository struct {
	DB *leveldb.DB
}

func OpenLevelRepository(path string) (*LevelRepository, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelRepository{DB: db}, nil
}

// NewMemoryRepository backs the ledger with in-memory LevelDB storage.
func NewMemoryRepository() (*LevelRepository, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory leveldb: %w", err)
	}
	return &LevelRepository{DB: db}, nil
}

func (r *LevelRepository) Close() error {
	return r.DB.Close()
}

func (r *LevelRepository) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr, err := r.DB.OpenTransaction()
	if err != nil {
		return fmt.Errorf("open leveldb transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tr.Discard()
		}
	}()

	if err := fn(&levelTx{r: tr, w: tr}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tr.Commit(); err != nil {
		return fmt.Errorf("commit leveldb transaction: %w", err)
	}
	committed = true
	return nil
}

func (r *LevelRepository) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := r.DB.GetSnapshot()
	if err != nil {
		return fmt.Errorf("leveldb snapshot: %w", err)
	}
	defer snap.Release()
	return fn(&levelTx{r: snap})
}

func (r *LevelRepository) ListCampaigns(ctx context.Context, offset, limit int) ([]*model.Campaign, int, error) {
	var campaigns []*model.Campaign
	err := r.View(ctx, func(tx LedgerTx) error {
		it := tx.(*levelTx).r.NewIterator(util.BytesPrefix(campaignPrefix), nil)
		defer it.Release()
		for it.Next() {
			c := &model.Campaign{}
			if err := json.Unmarshal(it.Value(), c); err != nil {
				return fmt.Errorf("decode campaign %s: %w", it.Key(), err)
			}
			campaigns = append(campaigns, c)
		}
		return it.Error()
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(campaigns, func(i, j int) bool {
		if campaigns[i].CreatedAt != campaigns[j].CreatedAt {
			return campaigns[i].CreatedAt > campaigns[j].CreatedAt
		}
		return bytes.Compare(campaigns[i].Address[:], campaigns[j].Address[:]) < 0
	})

	total := len(campaigns)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []*model.Campaign{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	return campaigns[offset:end], total, nil
}

type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type levelTx struct {
	r levelReader
	w *leveldb.Transaction
}

func key(prefix []byte, parts ...address.Address) []byte {
	k := append([]byte{}, prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p.String()...)
	}
	return k
}

func (t *levelTx) getJSON(k []byte, dst any) (bool, error) {
	raw, err := t.r.Get(k, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("leveldb get %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", k, err)
	}
	return true, nil
}

func (t *levelTx) putJSON(k []byte, v any) error {
	if t.w == nil {
		return errReadOnly
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	if err := t.w.Put(k, raw, nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", k, err)
	}
	return nil
}

func (t *levelTx) GetCampaign(ctx context.Context, addr address.Address) (*model.Campaign, error) {
	c := &model.Campaign{}
	found, err := t.getJSON(key(campaignPrefix, addr), c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, appErrors.NewCampaignNotFound(addr.String())
	}
	return c, nil
}

func (t *levelTx) InsertCampaign(ctx context.Context, c *model.Campaign) error {
	var existing model.Campaign
	found, err := t.getJSON(key(campaignPrefix, c.Address), &existing)
	if err != nil {
		return err
	}
	if found {
		return appErrors.NewAddressInUse(c.Address.String())
	}
	return t.putJSON(key(campaignPrefix, c.Address), c)
}

func (t *levelTx) UpdateCampaign(ctx context.Context, c *model.Campaign) error {
	stored, err := t.GetCampaign(ctx, c.Address)
	if err != nil {
		return err
	}
	if stored.Version != c.Version {
		return appErrors.ErrConcurrentUpdate
	}
	next := *c
	next.Version++
	if err := t.putJSON(key(campaignPrefix, c.Address), &next); err != nil {
		return err
	}
	c.Version = next.Version
	return nil
}

func (t *levelTx) GetContribution(ctx context.Context, addr address.Address) (*model.Contribution, error) {
	c := &model.Contribution{}
	found, err := t.getJSON(key(contributionPrefix, addr), c)
	if err != nil || !found {
		return nil, err
	}
	return c, nil
}

func (t *levelTx) PutContribution(ctx context.Context, c *model.Contribution) error {
	if t.w == nil {
		return errReadOnly
	}
	if err := t.putJSON(key(contributionPrefix, c.Address), c); err != nil {
		return err
	}
	if err := t.w.Put(key(campaignIndexPrefix, c.Campaign, c.Address), nil, nil); err != nil {
		return fmt.Errorf("leveldb index contribution %s: %w", c.Address, err)
	}
	return nil
}

func (t *levelTx) DeleteContribution(ctx context.Context, addr address.Address) error {
	if t.w == nil {
		return errReadOnly
	}
	existing, err := t.GetContribution(ctx, addr)
	if err != nil {
		return err
	}
	if existing == nil {
		return appErrors.NewContributionNotFound(addr.String())
	}
	if err := t.w.Delete(key(contributionPrefix, addr), nil); err != nil {
		return fmt.Errorf("leveldb delete contribution %s: %w", addr, err)
	}
	if err := t.w.Delete(key(campaignIndexPrefix, existing.Campaign, addr), nil); err != nil {
		return fmt.Errorf("leveldb delete contribution index %s: %w", addr, err)
	}
	return nil
}

func (t *levelTx) ListContributions(ctx context.Context, campaign address.Address) ([]*model.Contribution, error) {
	prefix := append(key(campaignIndexPrefix, campaign), '/')
	it := t.r.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	var out []*model.Contribution
	for it.Next() {
		addr, err := address.Parse(string(it.Key()[len(prefix):]))
		if err != nil {
			return nil, fmt.Errorf("corrupt contribution index %s: %w", it.Key(), err)
		}
		c, err := t.GetContribution(ctx, addr)
		if err != nil {
			return nil, err
		}
		if c != nil {
			out = append(out, c)
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate contributions of %s: %w", campaign, err)
	}
	return out, nil
}

func (t *levelTx) Balance(ctx context.Context, account address.Address) (uint64, error) {
	raw, err := t.r.Get(key(balancePrefix, account), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leveldb get balance %s: %w", account, err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt balance record for %s", account)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *levelTx) SetBalance(ctx context.Context, account address.Address, amount uint64) error {
	if t.w == nil {
		return errReadOnly
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], amount)
	if err := t.w.Put(key(balancePrefix, account), raw[:], nil); err != nil {
		return fmt.Errorf("leveldb put balance %s: %w", account, err)
	}
	return nil
}

var _ LedgerRepositoryInterface = (*LevelRepository)(nil)
