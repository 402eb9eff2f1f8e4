package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"recruitment-service/internal/apperr"
	"recruitment-service/internal/dto"
	"recruitment-service/internal/service"
)

type CandidateController struct {
	testService      service.TestService
	lifecycleService service.LifecycleService
	resultService    service.ResultService
}

func NewCandidateController(
	testService service.TestService,
	lifecycleService service.LifecycleService,
	resultService service.ResultService,
) *CandidateController {
	return &CandidateController{
		testService:      testService,
		lifecycleService: lifecycleService,
		resultService:    resultService,
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyAssigned), errors.Is(err, apperr.ErrAlreadyFinished):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetTestByJobPosting godoc
// @Summary (Candidate) Get the test linked to a job posting
// @Description Read-only lookup of the test for a posting. Correct answers are never included. Does not create or modify an attempt.
// @Tags Candidate - Tests
// @Produce json
// @Param job_posting_id path int true "Job Posting ID"
// @Success 200 {object} dto.CandidateTestDTO
// @Failure 404 {object} dto.ErrorResponse "No test for this job posting"
// @Router /job-postings/{job_posting_id}/test [get]
func (c *CandidateController) GetTestByJobPosting(ctx *gin.Context) {
	jobPostingID, ok := pathID(ctx, "job_posting_id")
	if !ok {
		return
	}
	test, err := c.testService.GetTestByJobPosting(jobPostingID)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, test)
}

// OpenTest godoc
// @Summary (Candidate) Open or resume a test attempt
// @Description Starts the clock on first open; subsequent opens return the same start time. A finished attempt returns its stored result without re-scoring.
// @Tags Candidate - Attempts
// @Accept json
// @Produce json
// @Param test_id path int true "Test ID"
// @Param request body dto.OpenTestRequest true "Candidate identifier"
// @Success 200 {object} dto.OpenTestResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /tests/{test_id}/open [post]
func (c *CandidateController) OpenTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.OpenTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.lifecycleService.OpenTest(req.CandidateID, testID)
	if err != nil {
		log.Warn().Err(err).Uint("candidateID", req.CandidateID).Uint("testID", testID).Msg("OpenTest: service error")
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitTest godoc
// @Summary (Candidate) Submit answers for a test
// @Description Accepted at most once per attempt. Submissions past the deadline are recorded but expire with score 0.
// @Tags Candidate - Attempts
// @Accept json
// @Produce json
// @Param test_id path int true "Test ID"
// @Param submission body dto.SubmitTestRequest true "Answers keyed by question id"
// @Success 200 {object} dto.SubmitTestResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already finished"
// @Router /tests/{test_id}/submit [post]
func (c *CandidateController) SubmitTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.SubmitTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	log.Info().Uint("testID", testID).Uint("candidateID", req.CandidateID).Int("answerCount", len(req.Answers)).Msg("Received test submission")

	result, err := c.lifecycleService.SubmitTest(testID, req)
	if err != nil {
		log.Warn().Err(err).Uint("candidateID", req.CandidateID).Uint("testID", testID).Msg("SubmitTest: service error")
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetCandidateResults godoc
// @Summary (Candidate) List a candidate's attempts
// @Tags Candidate - Results
// @Produce json
// @Param candidate_id path int true "Candidate ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /candidates/{candidate_id}/results [get]
func (c *CandidateController) GetCandidateResults(ctx *gin.Context) {
	candidateID, ok := pathID(ctx, "candidate_id")
	if !ok {
		return
	}
	results, err := c.resultService.GetResultsByCandidate(candidateID)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, results)
}

// GetAttemptDetails godoc
// @Summary (Candidate) Get the full detail of one attempt
// @Tags Candidate - Results
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (c *CandidateController) GetAttemptDetails(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	detail, err := c.resultService.GetAttemptDetails(attemptID)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
