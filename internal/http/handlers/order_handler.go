package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/service"
)

type OrderHandler struct {
	orders      *service.OrderService
	assignments *service.AssignmentService
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders *service.OrderService, assignments *service.AssignmentService) *OrderHandler {
	return &OrderHandler{orders: orders, assignments: assignments}
}

// createOrderForm поля заказа в multipart форме.
type createOrderForm struct {
	Title        string   `form:"title"`
	Description  string   `form:"description"`
	Budget       string   `form:"budget"`
	CategoryID   string   `form:"category_id"`
	Skills       []string `form:"skills"`
	DeadlineDays *int     `form:"deadline_days"`
	Status       string   `form:"status"`
}

func (f createOrderForm) toRequest() (service.CreateOrderRequest, error) {
	req := service.CreateOrderRequest{
		Title:        f.Title,
		Description:  f.Description,
		Skills:       f.Skills,
		DeadlineDays: f.DeadlineDays,
		Status:       f.Status,
	}
	if raw := strings.TrimSpace(f.Budget); raw != "" {
		budget, err := decimal.NewFromString(raw)
		if err != nil {
			return req, apperror.New(apperror.ErrCodeBadRequest, "некорректный бюджет")
		}
		req.Budget = decimal.NewNullDecimal(budget)
	}
	if raw := strings.TrimSpace(f.CategoryID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return req, apperror.New(apperror.ErrCodeBadRequest, "некорректная категория")
		}
		req.CategoryID = id
	}
	return req, nil
}

// Create обрабатывает POST /orders. Принимает JSON или multipart с вложениями в поле files.
func (h *OrderHandler) Create(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req service.CreateOrderRequest
	if isMultipart(c) {
		var form createOrderForm
		if err := c.ShouldBind(&form); err != nil {
			common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректная форма заказа"))
			return
		}
		if req, err = form.toRequest(); err != nil {
			common.Fail(c, err)
			return
		}
		uploads, closeAll, err := openUploads(c)
		if err != nil {
			common.Fail(c, err)
			return
		}
		defer closeAll()
		req.Files = uploads
	} else if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), actor, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// List обрабатывает GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	var req service.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректные параметры фильтра"))
		return
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.Fail(c, apperror.New(apperror.ErrCodeBadRequest, "параметр category_id должен быть валидным UUID"))
			return
		}
		req.CategoryID = &id
	}
	req.Limit, req.Offset = common.GetPagination(c, common.DefaultPageSize)

	list, err := h.orders.List(c.Request.Context(), req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListByCategory обрабатывает GET /categories/:id/orders.
func (h *OrderHandler) ListByCategory(c *gin.Context) {
	categoryID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, common.DefaultPageSize)

	list, err := h.orders.ListByCategory(c.Request.Context(), categoryID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListMine обрабатывает GET /orders/my.
func (h *OrderHandler) ListMine(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c, common.DefaultPageSize)

	list, err := h.orders.ListMine(c.Request.Context(), actor, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListAssigned обрабатывает GET /orders/assigned: заказы, где пользователь исполнитель.
func (h *OrderHandler) ListAssigned(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	orders, err := h.assignments.OrdersFor(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Get обрабатывает GET /orders/:id. Авторизация необязательна.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	viewer, _ := common.OptionalActor(c)

	details, err := h.orders.Get(c.Request.Context(), viewer, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// History обрабатывает GET /orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	history, err := h.orders.History(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Publish обрабатывает POST /orders/:id/publish.
func (h *OrderHandler) Publish(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Publish(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Cancel обрабатывает POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// SubmitForReview обрабатывает POST /orders/:id/submit. Результат работы передаётся multipart файлами.
func (h *OrderHandler) SubmitForReview(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var uploads []service.FileUpload
	if isMultipart(c) {
		opened, closeAll, err := openUploads(c)
		if err != nil {
			common.Fail(c, err)
			return
		}
		defer closeAll()
		uploads = opened
	}

	order, err := h.orders.SubmitForReview(c.Request.Context(), actor, orderID, uploads)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Close обрабатывает POST /orders/:id/close.
func (h *OrderHandler) Close(c *gin.Context) {
	actor, orderID, ok := actorAndID(c, "id")
	if !ok {
		return
	}

	var req service.CloseOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.Close(c.Request.Context(), actor, orderID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// actorAndID общая прелюдия для операций над ресурсом от имени пользователя.
// При ошибке ответ уже отправлен в ErrorHandler.
func actorAndID(c *gin.Context, param string) (service.Actor, uuid.UUID, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, param)
	if err != nil {
		common.Fail(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
