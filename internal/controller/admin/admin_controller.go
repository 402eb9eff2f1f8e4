package admin

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

type AdminController struct {
	testService      service.TestService
	lifecycleService service.LifecycleService
}

func NewAdminController(testService service.TestService, lifecycleService service.LifecycleService) *AdminController {
	return &AdminController{
		testService:      testService,
		lifecycleService: lifecycleService,
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

// CreateTest godoc
// @Summary (Admin) Create a test with its questions
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Param test body dto.TestCreateDTO true "Test definition"
// @Success 201 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid payload"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/tests [post]
func (c *AdminController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	created, err := c.testService.CreateTest(req)
	if err != nil {
		log.Error().Err(err).Msg("Admin CreateTest: service error")
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: "Failed to create test", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, created)
}

// GetAllTests godoc
// @Summary (Admin) List all tests
// @Tags Admin - Tests
// @Produce json
// @Success 200 {array} dto.TestSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/tests [get]
func (c *AdminController) GetAllTests(ctx *gin.Context) {
	tests, err := c.testService.GetAllTests()
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: "Failed to retrieve tests", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetTest godoc
// @Summary (Admin) Get a test with questions and correct answers
// @Tags Admin - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id} [get]
func (c *AdminController) GetTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	test, err := c.testService.GetTest(testID)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, test)
}

// UpdateTest godoc
// @Summary (Admin) Update test metadata
// @Description Updates title, description, duration, minimum score and job posting link. Existing attempts are not rescored.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Param test_id path int true "Test ID"
// @Param test body dto.TestUpdateDTO true "Fields to update"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id} [put]
func (c *AdminController) UpdateTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.TestUpdateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	updated, err := c.testService.UpdateTest(testID, req)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, updated)
}

// DeleteTest godoc
// @Summary (Admin) Delete a test and its questions
// @Tags Admin - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /admin/tests/{test_id} [delete]
func (c *AdminController) DeleteTest(ctx *gin.Context) {
	testID, ok := pathID(ctx, "test_id")
	if !ok {
		return
	}
	if err := c.testService.DeleteTest(testID); err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Test deleted"})
}

// AssignTest godoc
// @Summary (Admin) Assign a test to a candidate
// @Description Creates the attempt ledger in the assigned state and fires one assigned notification event.
// @Tags Admin - Assignments
// @Accept json
// @Produce json
// @Param assignment body dto.AssignTestRequest true "Test and candidate"
// @Success 201 {object} dto.AttemptSummaryDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 409 {object} dto.ErrorResponse "Already assigned to this candidate"
// @Router /admin/assignments [post]
func (c *AdminController) AssignTest(ctx *gin.Context) {
	var req dto.AssignTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	summary, err := c.lifecycleService.AssignTest(req.CandidateID, req.TestID)
	if err != nil {
		log.Warn().Err(err).Uint("candidateID", req.CandidateID).Uint("testID", req.TestID).Msg("Admin AssignTest: service error")
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, summary)
}

// SendReminder godoc
// @Summary (Admin) Send a reminder for a pending attempt
// @Description Emits a reminder notification event with the remaining time. Rejected once the attempt is terminal.
// @Tags Admin - Assignments
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.ReminderResponseDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already finished"
// @Router /admin/attempts/{attempt_id}/reminder [post]
func (c *AdminController) SendReminder(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	reminder, err := c.lifecycleService.SendReminder(attemptID)
	if err != nil {
		ctx.JSON(httpStatus(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, reminder)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
