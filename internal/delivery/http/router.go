package http

import (
	"net/http"

	"clinicflow/internal/delivery/http/handler"
	"clinicflow/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	doctorHandler       *handler.DoctorHandler
	patientHandler      *handler.PatientHandler
	availabilityHandler *handler.AvailabilityHandler
	appointmentHandler  *handler.AppointmentHandler
	queueHandler        *handler.QueueHandler
	consultationHandler *handler.ConsultationHandler
	billingHandler      *handler.BillingHandler
	catalogHandler      *handler.CatalogHandler
	auditLogHandler     *handler.AuditLogHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	doctorHandler *handler.DoctorHandler,
	patientHandler *handler.PatientHandler,
	availabilityHandler *handler.AvailabilityHandler,
	appointmentHandler *handler.AppointmentHandler,
	queueHandler *handler.QueueHandler,
	consultationHandler *handler.ConsultationHandler,
	billingHandler *handler.BillingHandler,
	catalogHandler *handler.CatalogHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         authHandler,
		doctorHandler:       doctorHandler,
		patientHandler:      patientHandler,
		availabilityHandler: availabilityHandler,
		appointmentHandler:  appointmentHandler,
		queueHandler:        queueHandler,
		consultationHandler: consultationHandler,
		billingHandler:      billingHandler,
		catalogHandler:      catalogHandler,
		auditLogHandler:     auditLogHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.RegisterPatient).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Staff registration (admin only)
	authAdmin := api.PathPrefix("/auth").Subrouter()
	authAdmin.Use(r.authMiddleware.Authenticate)
	authAdmin.Use(middleware.RequireAdmin)
	authAdmin.HandleFunc("/register/doctor", r.authHandler.RegisterDoctor).Methods(http.MethodPost)
	authAdmin.HandleFunc("/register/receptionist", r.authHandler.RegisterReceptionist).Methods(http.MethodPost)

	// Public browse routes
	api.HandleFunc("/availabilities", r.availabilityHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/availabilities/{id}", r.availabilityHandler.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}/availabilities", r.availabilityHandler.GetByDoctor).Methods(http.MethodGet)
	api.HandleFunc("/service-items", r.catalogHandler.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/service-items/{id}", r.catalogHandler.GetByID).Methods(http.MethodGet)

	// Patient routes
	patient := api.PathPrefix("").Subrouter()
	patient.Use(r.authMiddleware.Authenticate)
	patient.Use(middleware.RequirePatient)
	patient.HandleFunc("/appointments", r.appointmentHandler.BookAppointment).Methods(http.MethodPost)
	patient.HandleFunc("/appointments/my", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	patient.HandleFunc("/patients/me", r.patientHandler.UpdateSelfProfile).Methods(http.MethodPut)

	// Shared authenticated routes; ownership is enforced per role in the usecases
	authed := api.PathPrefix("").Subrouter()
	authed.Use(r.authMiddleware.Authenticate)
	authed.HandleFunc("/appointments/{id}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}", r.appointmentHandler.CancelAppointment).Methods(http.MethodDelete)
	authed.HandleFunc("/appointments/{id}/medical-record", r.consultationHandler.GetMedicalRecord).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id}/billings", r.billingHandler.GetByAppointment).Methods(http.MethodGet)

	// Front desk routes
	frontDesk := api.PathPrefix("").Subrouter()
	frontDesk.Use(r.authMiddleware.Authenticate)
	frontDesk.Use(middleware.RequireFrontDesk)
	frontDesk.HandleFunc("/appointments/walk-in", r.appointmentHandler.RegisterWalkIn).Methods(http.MethodPost)
	frontDesk.HandleFunc("/appointments/{id}/confirm", r.appointmentHandler.ConfirmAppointment).Methods(http.MethodPut)
	frontDesk.HandleFunc("/appointments/{id}/check-in", r.appointmentHandler.CheckInPatient).Methods(http.MethodPut)
	frontDesk.HandleFunc("/queue/walk-in/{id}", r.queueHandler.IssueWalkInToken).Methods(http.MethodPost)
	frontDesk.HandleFunc("/queue/reorder", r.queueHandler.ReorderQueue).Methods(http.MethodPut)
	frontDesk.HandleFunc("/queue/{id}/prioritize", r.queueHandler.PrioritizeEntry).Methods(http.MethodPut)
	frontDesk.HandleFunc("/queue/{id}", r.queueHandler.RemoveFromQueue).Methods(http.MethodDelete)
	frontDesk.HandleFunc("/billings", r.billingHandler.Create).Methods(http.MethodPost)
	frontDesk.HandleFunc("/billings/{id}", r.billingHandler.GetByID).Methods(http.MethodGet)
	frontDesk.HandleFunc("/billings/{id}", r.billingHandler.Update).Methods(http.MethodPut)
	frontDesk.HandleFunc("/billings/{id}", r.billingHandler.Delete).Methods(http.MethodDelete)
	frontDesk.HandleFunc("/billings/{id}/settle", r.billingHandler.Settle).Methods(http.MethodPut)

	// Queue view (any staff)
	staff := api.PathPrefix("").Subrouter()
	staff.Use(r.authMiddleware.Authenticate)
	staff.Use(middleware.RequireStaff)
	staff.HandleFunc("/queue", r.queueHandler.GetQueue).Methods(http.MethodGet)

	// Doctor routes
	doctor := api.PathPrefix("").Subrouter()
	doctor.Use(r.authMiddleware.Authenticate)
	doctor.Use(middleware.RequireDoctor)
	doctor.HandleFunc("/appointments/{id}/accept", r.appointmentHandler.AcceptAppointment).Methods(http.MethodPut)
	doctor.HandleFunc("/consultations/{id}/start", r.consultationHandler.StartConsultation).Methods(http.MethodPut)
	doctor.HandleFunc("/consultations/{id}/complete", r.consultationHandler.CompleteConsultation).Methods(http.MethodPut)
	doctor.HandleFunc("/doctors/me", r.doctorHandler.UpdateSelfProfile).Methods(http.MethodPut)

	// Availability management (doctor manages own windows, admin any)
	availability := api.PathPrefix("").Subrouter()
	availability.Use(r.authMiddleware.Authenticate)
	availability.Use(middleware.RequireAdminOrDoctor)
	availability.HandleFunc("/availabilities", r.availabilityHandler.Create).Methods(http.MethodPost)
	availability.HandleFunc("/availabilities/{id}", r.availabilityHandler.Update).Methods(http.MethodPut)
	availability.HandleFunc("/availabilities/{id}", r.availabilityHandler.Delete).Methods(http.MethodDelete)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Doctor management (admin)
	admin.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.DeleteDoctor).Methods(http.MethodDelete)

	// Service catalog management (admin)
	admin.HandleFunc("/service-items", r.catalogHandler.Create).Methods(http.MethodPost)
	admin.HandleFunc("/service-items/{id}", r.catalogHandler.Update).Methods(http.MethodPut)
	admin.HandleFunc("/service-items/{id}", r.catalogHandler.Delete).Methods(http.MethodDelete)

	// Audit trail (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
