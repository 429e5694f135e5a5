package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/TIANLI0/AttackLens/config"
	"github.com/TIANLI0/AttackLens/middleware"
	"github.com/TIANLI0/AttackLens/model"
	"github.com/TIANLI0/AttackLens/page"
	"github.com/TIANLI0/AttackLens/service"
	"github.com/TIANLI0/AttackLens/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errImageTooLarge = errors.New("image too large")

// uploadFormOverhead is the room left for multipart headers and the epsilon
// field on top of upload.max_size.
const uploadFormOverhead = 1 << 20

type AttackHandler struct {
	cfg      *config.Config
	attacker service.Attacker
	meta     page.Meta
}

func NewAttackHandler(cfg *config.Config, attacker service.Attacker) *AttackHandler {
	return &AttackHandler{
		cfg:      cfg,
		attacker: attacker,
		meta:     page.MetaFromConfig(&cfg.Site),
	}
}

// attackForm is the non-file part of a JSON-route submission.
type attackForm struct {
	Epsilon *float64 `form:"epsilon" binding:"omitempty,gte=0,lte=1"`
}

// Index renders a fresh page.
func (h *AttackHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, page.New(h.attacker))
}

// Submit handles the page form: it runs one submission and renders the
// page with its outcome.
func (h *AttackHandler) Submit(c *gin.Context) {
	h.limitBody(c)

	file, err := h.readImage(c)
	p := page.New(h.attacker)
	p.SetEpsilon(parseEpsilon(c.PostForm("epsilon")))
	switch {
	case errors.Is(err, errImageTooLarge):
		c.String(http.StatusRequestEntityTooLarge, "image exceeds %d MB", h.cfg.Upload.MaxSize/(1024*1024))
		return
	case errors.Is(err, http.ErrMissingFile):
		// nothing picked; render the page unchanged
	case err != nil:
		utils.Logger.Error("failed to read uploaded file", zap.Error(err))
		c.String(http.StatusBadRequest, "invalid upload: %v", err)
		return
	default:
		p.SelectFile(file)
	}

	if p.Submit(c.Request.Context()) {
		h.logOutcome(c, p.State())
	}
	h.render(c, http.StatusOK, p)
}

// Attack is the JSON variant of Submit.
func (h *AttackHandler) Attack(c *gin.Context) {
	h.limitBody(c)

	var form attackForm
	if err := c.ShouldBind(&form); err != nil {
		if tooLarge(err) {
			h.rejectLarge(c, errImageTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "epsilon must be a number between 0 and 1",
			Error:   err.Error(),
		})
		return
	}

	file, err := h.readImage(c)
	if errors.Is(err, errImageTooLarge) {
		h.rejectLarge(c, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "please upload an image file",
			Error:   err.Error(),
		})
		return
	}

	p := page.New(h.attacker)
	p.SelectFile(file)
	if form.Epsilon != nil {
		p.SetEpsilon(*form.Epsilon)
	}
	p.Submit(c.Request.Context())

	st := p.State()
	h.logOutcome(c, st)
	if st.Phase() == page.PhaseError {
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Success: false,
			Message: "attack request failed",
			Error:   st.ErrorMessage(),
		})
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: "ok",
		Data:    st.Result(),
	})
}

func (h *AttackHandler) rejectLarge(c *gin.Context, err error) {
	c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
		Success: false,
		Message: fmt.Sprintf("image exceeds %d MB", h.cfg.Upload.MaxSize/(1024*1024)),
		Error:   err.Error(),
	})
}

// limitBody caps the request body so an oversized upload fails while the
// multipart form is being parsed instead of after it has been spooled.
func (h *AttackHandler) limitBody(c *gin.Context) {
	if h.cfg.Upload.MaxSize <= 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxSize+uploadFormOverhead)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (h *AttackHandler) readImage(c *gin.Context) (*page.File, error) {
	header, err := c.FormFile("image")
	if tooLarge(err) {
		return nil, errImageTooLarge
	}
	if err != nil {
		return nil, err
	}
	if h.cfg.Upload.MaxSize > 0 && header.Size > h.cfg.Upload.MaxSize {
		return nil, errImageTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &page.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *AttackHandler) logOutcome(c *gin.Context, st page.State) {
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.Float64("epsilon", st.Epsilon()),
		zap.String("phase", st.Phase().String()),
	}
	if st.Phase() == page.PhaseError {
		utils.Logger.Warn("attack failed", append(fields, zap.String("error", st.ErrorMessage()))...)
		return
	}
	if res := st.Result(); res != nil {
		fields = append(fields,
			zap.String("clean_prediction", res.CleanPrediction),
			zap.String("adversarial_prediction", res.AdversarialPrediction),
			zap.Bool("attack_success", res.AttackSuccess))
	}
	utils.Logger.Info("attack finished", fields...)
}

func (h *AttackHandler) render(c *gin.Context, status int, p *page.AttackPage) {
	c.HTML(status, page.TemplateName, page.View{Meta: h.meta, State: p.State()})
}

// parseEpsilon reads the slider value; anything unparsable is the default.
func parseEpsilon(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.DefaultEpsilon
	}
	return v
}

// Register mounts the page and the JSON route on r.
func (h *AttackHandler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(page.Templates())

	r.GET("/", h.Index)
	r.POST("/", h.Submit)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(h.cfg.Server.CORSOrigins))
	{
		api.POST("/attack", h.Attack)
		api.OPTIONS("/attack")
	}
}
