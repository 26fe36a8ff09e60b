package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/handler"
	"github.com/noah-isme/preicfes-api/internal/middleware"
	"github.com/noah-isme/preicfes-api/internal/service"
)

type routeHandlers struct {
	metrics     *handler.MetricsHandler
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	locations   *handler.LocationHandler
	students    *handler.StudentHandler
	classes     *handler.ClassHandler
	ledger      *handler.LedgerHandler
	agreements  *handler.AgreementHandler
	collections *handler.CollectionsHandler
	finance     *handler.FinanceHandler
}

func registerRoutes(api *gin.RouterGroup, auth *service.AuthService, h routeHandlers) {
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth, service.NewPolicy()))

	secured.GET("/auth/me", h.auth.Me)
	secured.PUT("/auth/password", h.auth.ChangePassword)

	users := secured.Group("/users", middleware.RequireCapability(service.CapManageUsers))
	users.GET("", h.users.List)
	users.POST("", h.users.Create)
	users.GET("/:id", h.users.Get)
	users.PUT("/:id", h.users.Update)

	system := secured.Group("/system", middleware.RequireCapability(service.CapManageUsers))
	system.GET("/metrics", h.metrics.Summary)

	academics := middleware.RequireCapability(service.CapManageAcademics)
	anyStaff := middleware.RequireCapability(service.CapManageAcademics, service.CapManageLedger, service.CapViewCollections)

	secured.GET("/departments", anyStaff, h.locations.ListDepartments)
	secured.GET("/municipalities", anyStaff, h.locations.ListMunicipalities)
	secured.GET("/sites", anyStaff, h.locations.ListSites)
	secured.GET("/rooms", anyStaff, h.locations.ListRooms)
	admin := middleware.RequireCapability(service.CapManageUsers)
	secured.POST("/departments", admin, h.locations.CreateDepartment)
	secured.POST("/municipalities", admin, h.locations.CreateMunicipality)
	secured.POST("/sites", admin, h.locations.CreateSite)
	secured.POST("/rooms", admin, h.locations.CreateRoom)

	secured.GET("/groups", anyStaff, h.locations.ListGroups)
	secured.GET("/groups/:id", anyStaff, h.locations.GetGroup)
	secured.POST("/groups", academics, h.locations.CreateGroup)

	students := secured.Group("/students")
	students.GET("", anyStaff, h.students.List)
	students.POST("", academics, h.students.Create)
	students.GET("/withdrawn", anyStaff, h.students.Withdrawn)
	students.GET("/withdrawn/export", anyStaff, h.students.ExportWithdrawn)
	students.GET("/:id", anyStaff, h.students.Get)
	students.PUT("/:id", academics, h.students.Update)
	students.POST("/:id/withdraw", academics, h.students.Withdraw)
	students.GET("/:id/certificate", anyStaff, h.students.Certificate)
	students.GET("/:id/debt", anyStaff, h.students.Debt)
	students.GET("/:id/clearance", anyStaff, h.students.Clearance)

	// Professors hold no capability; visibility of their own classes is
	// decided by the class and attendance services.
	classes := secured.Group("/classes")
	classes.GET("", h.classes.List)
	classes.GET("/:id", h.classes.Get)
	classes.POST("", academics, h.classes.Create)
	classes.PUT("/:id", academics, h.classes.Update)
	classes.POST("/:id/taught", h.classes.MarkTaught)
	classes.GET("/:id/attendance", h.classes.Roster)
	classes.GET("/:id/certificates", academics, h.classes.Certificates)
	classes.POST("/:id/attendance", h.classes.RegisterAttendance)
	secured.POST("/absences", academics, h.classes.RecordAbsence)

	ledger := middleware.RequireCapability(service.CapManageLedger)
	debts := secured.Group("/debts")
	debts.POST("", ledger, h.ledger.CreateDebt)
	debts.GET("/:id", anyStaff, h.ledger.GetDebt)
	debts.PUT("/:id", ledger, h.ledger.UpdateDebt)
	debts.POST("/:id/toggle-edit", ledger, h.ledger.ToggleEdit)
	debts.GET("/:id/modifications", ledger, h.ledger.Modifications)
	debts.POST("/:id/installments", ledger, h.ledger.AddInstallment)
	debts.POST("/:id/installments/generate", ledger, h.ledger.Generate)

	installments := secured.Group("/installments")
	installments.PUT("/:id", ledger, h.ledger.UpdateInstallment)
	installments.DELETE("/:id", ledger, h.ledger.DeleteInstallment)
	installments.POST("/:id/payments", ledger, h.ledger.RecordPayment)
	installments.GET("/:id/receipt", anyStaff, h.ledger.Receipt)
	installments.GET("/:id/receipt.pdf", anyStaff, h.ledger.ReceiptPDF)
	installments.POST("/:id/agreements", ledger, h.agreements.Create)

	collectionsDesk := middleware.RequireCapability(service.CapViewCollections)
	secured.GET("/agreements", collectionsDesk, h.agreements.List)
	collections := secured.Group("/collections", collectionsDesk)
	collections.GET("/overdue", h.collections.Overdue)
	collections.GET("/overdue/export", h.collections.ExportOverdue)
	collections.GET("/upcoming", h.collections.Upcoming)
	collections.GET("/clearances", h.collections.Clearances)
	collections.GET("/scholarships", h.collections.Scholarships)
	collections.GET("/maintenance", h.collections.PendingSweep)
	collections.POST("/maintenance", ledger, h.collections.SweepOverdue)

	reports := secured.Group("/reports", collectionsDesk)
	reports.GET("/daily", h.collections.DailyReport)
	reports.GET("/daily/pdf", h.collections.DailyReportPDF)
	reports.GET("/income-expenses", middleware.RequireCapability(service.CapManageFinance), h.collections.IncomeExpenses)

	financeDesk := middleware.RequireCapability(service.CapManageFinance)
	finance := secured.Group("", financeDesk)
	finance.GET("/expenses", h.finance.ListExpenses)
	finance.POST("/expenses", h.finance.CreateExpense)
	finance.POST("/expenses/:id/paid", h.finance.MarkExpensePaid)
	finance.GET("/collection-targets", h.finance.ListTargets)
	finance.PUT("/collection-targets", h.finance.SetTarget)
	finance.GET("/class-rates", h.finance.ListClassRates)
	finance.POST("/class-rates", h.finance.CreateClassRate)
	finance.GET("/class-rates/resolve", h.finance.ResolveRate)
}
