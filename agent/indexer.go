package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/calehh/ballot-app/app"
	"github.com/calehh/ballot-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// BlockSource is the part of the CometBFT RPC client the indexer reads from.
type BlockSource interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
	ABCIQuery(ctx context.Context, path string, data bytes.HexBytes) (*ctypes.ResultABCIQuery, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           BlockSource
	eventHandlers map[string]eventHandler

	mtx       sync.RWMutex
	proposals []types.Proposal
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	c, err := newChainIndexer(logger, dbPath, cli)
	if err != nil {
		return nil, err
	}
	c.Url = chainUrl
	return c, nil
}

func newChainIndexer(logger cmtlog.Logger, dbPath string, cli BlockSource) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Participant{}, &GrantRecord{}, &DelegationRecord{}, &BallotRecord{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	// sqlite allows a single writer; the API reads queue behind block writes.
	db.DB().SetMaxOpenConns(1)
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		db.Close()
		return nil, err
	}
	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Height: int64(h.Height + 1),
		db:     db,
		cli:    cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventGrantRightType: c.handleEventGrantRight,
		types.EventDelegateType:   c.handleEventDelegate,
		types.EventVoteType:       c.handleEventVote,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func participant(db *gorm.DB, address string) (*Participant, error) {
	p := Participant{Address: address}
	err := db.First(&p, "address = ?", address).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = Participant{Address: address, Choice: types.NoChoice}
	}
	return &p, nil
}

func (c *ChainIndexer) handleEventGrantRight(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.ParseEventGrantRight(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	grant := GrantRecord{
		Chairperson: ev.Chairperson,
		Voter:       ev.Voter,
		Weight:      ev.Weight,
		Height:      uint64(height),
	}
	if err := db.Create(&grant).Error; err != nil {
		return err
	}
	p, err := participant(db, ev.Voter)
	if err != nil {
		return err
	}
	p.Weight = ev.Weight
	p.Height = uint64(height)
	return db.Save(p).Error
}

func (c *ChainIndexer) handleEventDelegate(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.ParseEventDelegate(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	rec := DelegationRecord{
		From:     ev.From,
		To:       ev.To,
		Target:   ev.Target,
		Weight:   ev.Weight,
		Proposal: ev.Proposal,
		Height:   uint64(height),
	}
	if err := db.Create(&rec).Error; err != nil {
		return err
	}
	from, err := participant(db, ev.From)
	if err != nil {
		return err
	}
	from.Voted = true
	from.Delegate = ev.Target
	from.Height = uint64(height)
	if ev.Proposal != types.NoChoice {
		from.Choice = ev.Proposal
	}
	if err = db.Save(from).Error; err != nil {
		return err
	}
	if ev.Proposal != types.NoChoice {
		return nil
	}
	target, err := participant(db, ev.Target)
	if err != nil {
		return err
	}
	target.Weight += ev.Weight
	target.Height = uint64(height)
	return db.Save(target).Error
}

func (c *ChainIndexer) handleEventVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.ParseEventVote(event)
	if ev == nil {
		return fmt.Errorf("decode %s event fail", event.Type)
	}
	ballot := BallotRecord{
		Voter:    ev.Voter,
		Proposal: ev.Proposal,
		Weight:   ev.Weight,
		Height:   uint64(height),
	}
	if err := db.Create(&ballot).Error; err != nil {
		return err
	}
	p, err := participant(db, ev.Voter)
	if err != nil {
		return err
	}
	p.Voted = true
	p.Choice = ev.Proposal
	p.Height = uint64(height)
	return db.Save(p).Error
}

// indexBlock records the events of the committed txs of one block and the
// new indexed height in a single sqlite transaction.
func (c *ChainIndexer) indexBlock(results *ctypes.ResultBlockResults) (err error) {
	db := c.db.Begin()
	if err = db.Error; err != nil {
		return
	}
	defer func() {
		if err != nil {
			db.Rollback()
		}
	}()
	for _, res := range results.TxsResults {
		if res.Code != abci.CodeTypeOK {
			continue
		}
		for _, event := range res.Events {
			if err = c.handleEvent(db, event, results.Height); err != nil {
				return
			}
		}
	}
	if err = db.Save(&Height{Id: 1, Height: uint64(results.Height)}).Error; err != nil {
		return
	}
	return db.Commit().Error
}

// sync indexes every block from c.Height up to the latest committed one.
func (c *ChainIndexer) sync(ctx context.Context) error {
	st, err := c.cli.Status(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	if c.getProposals() == nil && st.SyncInfo.LatestBlockHeight > 0 {
		if err = c.loadProposals(ctx); err != nil {
			c.logger.Error("load proposals fail", "err", err)
		}
	}
	for st.SyncInfo.LatestBlockHeight >= c.Height {
		height := c.Height
		results, err := c.cli.BlockResults(ctx, &height)
		if err != nil {
			return fmt.Errorf("get block results %d: %w", height, err)
		}
		if err = c.indexBlock(results); err != nil {
			return fmt.Errorf("index block %d: %w", height, err)
		}
		c.logger.Debug("indexed block", "height", height, "txs", len(results.TxsResults))
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) loadProposals(ctx context.Context) error {
	res, err := c.cli.ABCIQuery(ctx, app.QueryPathProposals, nil)
	if err != nil {
		return err
	}
	if res.Response.Code != abci.CodeTypeOK {
		return fmt.Errorf("query proposals: %s", res.Response.Log)
	}
	var proposals []types.Proposal
	if err = json.Unmarshal(res.Response.Value, &proposals); err != nil {
		return err
	}
	c.mtx.Lock()
	c.proposals = proposals
	c.mtx.Unlock()
	return nil
}

func (c *ChainIndexer) getProposals() []types.Proposal {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.proposals
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.sync(ctx); err != nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func (c *ChainIndexer) indexedHeight() (uint64, error) {
	h := Height{Id: 1}
	err := c.db.First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return h.Height, err
}

func (c *ChainIndexer) getParticipant(address string) (*Participant, error) {
	var p Participant
	err := c.db.First(&p, "address = ?", address).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ChainIndexer) getGrants(page int, pageSize int) ([]GrantRecord, uint64, error) {
	var grants []GrantRecord
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&grants).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&GrantRecord{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return grants, total, nil
}

// getDelegations lists delegations sent from or resolved to address, or all
// of them when address is empty.
func (c *ChainIndexer) getDelegations(address string, page int, pageSize int) ([]DelegationRecord, uint64, error) {
	query := c.db.Model(&DelegationRecord{})
	if address != "" {
		query = query.Where("from_addr = ? OR target = ?", address, address)
	}
	var delegations []DelegationRecord
	err := query.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&delegations).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return delegations, total, nil
}

func (c *ChainIndexer) getBallots(proposal *int64, page int, pageSize int) ([]BallotRecord, uint64, error) {
	query := c.db.Model(&BallotRecord{})
	if proposal != nil {
		query = query.Where("proposal = ?", *proposal)
	}
	var ballots []BallotRecord
	err := query.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&ballots).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return ballots, total, nil
}

type TallyEntry struct {
	Proposal int64  `json:"proposal"`
	Name     string `json:"name"`
	Votes    uint64 `json:"votes"`
}

// getTally rebuilds the per-proposal totals from direct ballots and from
// delegations folded into an existing choice.
func (c *ChainIndexer) getTally() ([]TallyEntry, error) {
	type row struct {
		Proposal int64
		Votes    uint64
	}
	var ballots, folded []row
	err := c.db.Model(&BallotRecord{}).Select("proposal, sum(weight) as votes").Group("proposal").Scan(&ballots).Error
	if err != nil {
		return nil, err
	}
	err = c.db.Model(&DelegationRecord{}).Where("proposal >= 0").Select("proposal, sum(weight) as votes").Group("proposal").Scan(&folded).Error
	if err != nil {
		return nil, err
	}
	votes := make(map[int64]uint64)
	for _, r := range append(ballots, folded...) {
		votes[r.Proposal] += r.Votes
	}
	proposals := c.getProposals()
	for _, p := range proposals {
		if _, ok := votes[int64(p.Index)]; !ok {
			votes[int64(p.Index)] = 0
		}
	}
	tally := make([]TallyEntry, 0, len(votes))
	for idx, v := range votes {
		e := TallyEntry{Proposal: idx, Votes: v}
		if idx >= 0 && idx < int64(len(proposals)) {
			e.Name = proposals[idx].Name
		}
		tally = append(tally, e)
	}
	sort.Slice(tally, func(i, j int) bool {
		return tally[i].Proposal < tally[j].Proposal
	})
	return tally, nil
}
