package agent

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const defaultPageSize = 20

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getVoter", s.handleGetVoter)
	s.engine.POST("/getGrants", s.handleGetGrants)
	s.engine.POST("/getDelegations", s.handleGetDelegations)
	s.engine.POST("/getBallots", s.handleGetBallots)
	s.engine.POST("/getTally", s.handleGetTally)
	return s
}

func (s *Service) Start() error {
	return s.engine.Run(s.listenAddr)
}

type PageReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func (r *PageReq) normalize() {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.PageSize <= 0 {
		r.PageSize = defaultPageSize
	}
}

type GetVoterReq struct {
	Address string `json:"address" binding:"required"`
}

func (s *Service) handleGetVoter(c *gin.Context) {
	var requestData GetVoterReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := s.indexer.getParticipant(requestData.Address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type GetGrantsReq struct {
	PageReq
}

type GetGrantsResponse struct {
	Grants []GrantRecord `json:"grants"`
	Total  uint64        `json:"total"`
}

func (s *Service) handleGetGrants(c *gin.Context) {
	var requestData GetGrantsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	grants, total, err := s.indexer.getGrants(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetGrantsResponse{Grants: grants, Total: total})
}

type GetDelegationsReq struct {
	PageReq
	Address string `json:"address"`
}

type GetDelegationsResponse struct {
	Delegations []DelegationRecord `json:"delegations"`
	Total       uint64             `json:"total"`
}

func (s *Service) handleGetDelegations(c *gin.Context) {
	var requestData GetDelegationsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	delegations, total, err := s.indexer.getDelegations(requestData.Address, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetDelegationsResponse{Delegations: delegations, Total: total})
}

type GetBallotsReq struct {
	PageReq
	Proposal *int64 `json:"proposal"`
}

type GetBallotsResponse struct {
	Ballots []BallotRecord `json:"ballots"`
	Total   uint64         `json:"total"`
}

func (s *Service) handleGetBallots(c *gin.Context) {
	var requestData GetBallotsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requestData.normalize()
	ballots, total, err := s.indexer.getBallots(requestData.Proposal, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetBallotsResponse{Ballots: ballots, Total: total})
}

type GetTallyResponse struct {
	Height uint64       `json:"height"`
	Tally  []TallyEntry `json:"tally"`
}

func (s *Service) handleGetTally(c *gin.Context) {
	tally, err := s.indexer.getTally()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	height, err := s.indexer.indexedHeight()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetTallyResponse{Height: height, Tally: tally})
}
